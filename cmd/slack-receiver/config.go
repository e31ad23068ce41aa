package main

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/aasmall/slack-receiver/internal/dispatch"
	"github.com/aasmall/slack-receiver/internal/verify"
	"github.com/aasmall/slack-receiver/lib/envreader"
)

type envConfig struct {
	projectID        string
	logName          string
	serverPort       string
	podName          string
	natsURL          string
	subjectPrefix    string
	redisPort        string
	redisHosts       []string
	signingSecret    string
	encSigningSecret string
	kmsKeyName       string
	kmsEndpoint      string
	replayWindow     time.Duration
	debug            bool
	local            bool
}

func getEnvironmentalConfig(opts ...envreader.Option) (*envConfig, error) {
	configReader := envreader.New(opts...)
	config := &envConfig{
		projectID:     configReader.GetEnv("PROJECT_ID"),
		logName:       configReader.GetEnv("LOG_NAME"),
		serverPort:    configReader.GetEnv("SERVER_PORT"),
		natsURL:       configReader.GetEnv("NATS_URL"),
		podName:       configReader.GetEnvOpt("POD_NAME"),
		subjectPrefix: configReader.GetEnvDefault("SUBJECT_PREFIX", dispatch.DefaultSubjectPrefix),
		redisPort:     configReader.GetEnvDefault("REDIS_PORT", "6379"),
		signingSecret: configReader.GetEnvOpt("SLACK_SIGNING_SECRET"),
		kmsEndpoint:   configReader.GetEnvOpt("KMS_ENDPOINT"),
		replayWindow:  configReader.GetEnvDurationOpt("REPLAY_WINDOW", verify.DefaultReplayWindow),
		debug:         configReader.GetEnvBoolOpt("DEBUG"),
		local:         configReader.GetEnvBoolOpt("LOCAL"),
	}

	config.redisHosts = configReader.GetEnvList("REDIS_ADDRS")
	if len(config.redisHosts) == 0 && !config.local {
		config.redisHosts = configReader.GetPodHosts("default", "k8s-app=redis")
	}

	if config.signingSecret == "" {
		if path := configReader.GetEnvOpt("SLACK_SIGNING_SECRET_FILE"); path != "" {
			config.encSigningSecret = base64.StdEncoding.EncodeToString(configReader.GetFromFile(path))
			config.kmsKeyName = configReader.GetEnv("KMS_KEY_NAME")
		} else if !config.local {
			configReader.GetEnv("SLACK_SIGNING_SECRET")
		}
	}

	if err := configReader.Err(); err != nil {
		return nil, err
	}
	return config, nil
}

// redisAddresses returns host:port pairs, leaving hosts that carry a port alone.
func (c *envConfig) redisAddresses() []string {
	addrs := make([]string, 0, len(c.redisHosts))
	for _, h := range c.redisHosts {
		h = strings.TrimSpace(h)
		if strings.Contains(h, ":") {
			addrs = append(addrs, h)
			continue
		}
		addrs = append(addrs, fmt.Sprintf("%s:%s", h, c.redisPort))
	}
	return addrs
}
