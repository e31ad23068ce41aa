package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/logging"
	"github.com/aasmall/slack-receiver/internal/dispatch"
	"github.com/aasmall/slack-receiver/internal/metrics"
	"github.com/aasmall/slack-receiver/internal/receiver"
	"github.com/aasmall/slack-receiver/internal/verify"
	"github.com/aasmall/slack-receiver/lib/envreader"
	"github.com/aasmall/slack-receiver/lib/handler"
	log "github.com/aasmall/slack-receiver/lib/logger"
	"github.com/aasmall/slack-receiver/lib/middleware"
	"github.com/aasmall/slack-receiver/lib/secrets"
	"github.com/go-redis/redis/v7"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type environment struct {
	config        *envConfig
	log           *log.Logger
	signingSecret string
	replayGuard   verify.ReplayGuard
	conn          dispatch.Conn
}

func newRouter(env *environment) *mux.Router {
	materializer := verify.New(
		verify.WithSigningSecret(env.signingSecret),
		verify.WithReplayGuard(env.replayGuard),
		verify.WithLogger(env.log),
	)
	recorder := metrics.Recorder{}
	pipeline := receiver.NewPipeline(materializer, env.log, recorder)
	dispatcher := dispatch.New(env.conn, env.log,
		dispatch.WithSubjectPrefix(env.config.subjectPrefix),
		dispatch.WithObserver(recorder),
	)

	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.AccessLog(env.log))
	r.Handle("/slack/actions", handler.Handler{Env: env, H: pipeline.Actions(dispatcher.Handle), Log: env.log}).Methods(http.MethodPost)
	r.Handle("/slack/options", handler.Handler{Env: env, H: pipeline.Options(dispatcher.Handle), Log: env.log}).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.Handle("/healthz", handler.Handler{Env: env, H: healthzHandler, Log: env.log}).Methods(http.MethodGet)
	return r
}

func healthzHandler(e interface{}, w http.ResponseWriter, r *http.Request) error {
	fmt.Fprint(w, "ok")
	return nil
}

// loadSigningSecret returns the plaintext secret, decrypting it through KMS
// when only ciphertext was configured.
func loadSigningSecret(ctx context.Context, config *envConfig) (string, error) {
	if config.signingSecret != "" || config.encSigningSecret == "" {
		return config.signingSecret, nil
	}
	d, err := secrets.NewDecrypter(ctx, config.kmsKeyName, config.kmsEndpoint, nil)
	if err != nil {
		return "", err
	}
	return d.Decrypt(ctx, config.encSigningSecret)
}

func newReplayGuard(env *environment) (verify.ReplayGuard, func() error) {
	addrs := env.config.redisAddresses()
	if len(addrs) == 0 {
		env.log.Warning("no redis hosts configured, replay protection disabled")
		return nil, func() error { return nil }
	}
	env.log.Infof("Creating redis client with URIs: %v", addrs)
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: addrs})
	return verify.NewRedisReplayGuard(client, env.config.replayWindow), client.Close
}

func serve() error {
	config, err := getEnvironmentalConfig(envreader.WithViper(v))
	if err != nil {
		log.Fatalf("ERROR OCCURED BEFORE LOGGING: %s", err)
	}
	env := &environment{config: config}
	env.log = log.New(
		config.projectID,
		log.WithDefaultSeverity(logging.Error),
		log.WithDebug(config.debug),
		log.WithLogName(config.logName),
		log.WithPrefix(config.podName+": "),
		log.WithLocal(config.local),
	)
	env.log.Info("Logger up and running!")
	defer log.Println("Shutting down logger.")
	defer env.log.Close()

	ctx := context.Background()
	env.signingSecret, err = loadSigningSecret(ctx, config)
	if err != nil {
		env.log.Criticalf("could not load Slack signing secret: %v", err)
		return err
	}
	if env.signingSecret == "" {
		env.log.Warning("no Slack signing secret configured, signatures are not verified")
	}

	var closeRedis func() error
	env.replayGuard, closeRedis = newReplayGuard(env)
	defer closeRedis()

	nc, err := dispatch.Connect(config.natsURL, "slack-receiver", env.log)
	if err != nil {
		env.log.Criticalf("could not connect to NATS at %s: %v", config.natsURL, err)
		return err
	}
	defer nc.Close()
	env.conn = nc

	srv := &http.Server{
		Addr:         config.serverPort,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      newRouter(env),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			env.log.Criticalf("ListenAndServe error: %+v", err)
		}
	}()
	env.log.Infof("listening on %s", config.serverPort)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		env.log.Errorf("shutdown: %v", err)
	}
	if err := nc.Drain(); err != nil {
		env.log.Errorf("draining NATS: %v", err)
	}
	log.Println("shut down")
	return nil
}
