package main

import (
	"context"
	"encoding/base64"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/aasmall/slack-receiver/lib/envreader"
	"github.com/davecgh/go-spew/spew"
	"github.com/gobuffalo/envy"
	"github.com/spf13/viper"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	v1 "k8s.io/client-go/kubernetes/typed/core/v1"
)

type mockPod struct {
	v1.PodInterface
}

func (pi *mockPod) List(ctx context.Context, opts metav1.ListOptions) (*corev1.PodList, error) {
	return &corev1.PodList{Items: []corev1.Pod{{Status: corev1.PodStatus{PodIP: "test_ip"}}}}, nil
}

type mockioutil struct{}

func (mockioutil) ReadFile(filename string) ([]byte, error) { return []byte("test_file_contents"), nil }

var (
	testPod    = &mockPod{}
	testioutil = mockioutil{}
)

// withEnv sets vars in the process environment for the duration of f.
func withEnv(vars map[string]string, f func()) {
	envy.Temp(func() {
		for key, value := range vars {
			envy.MustSet(key, value)
		}
		defer func() {
			for key := range vars {
				os.Unsetenv(key)
			}
		}()
		f()
	})
}

func Test_getEnvironmentalConfig(t *testing.T) {
	base := map[string]string{
		"LOG_NAME":                  "test_log_name",
		"SERVER_PORT":               "test_server_port",
		"NATS_URL":                  "nats://test_nats:4222",
		"POD_NAME":                  "test_pod_name",
		"REDIS_PORT":                "test_redis_port",
		"SLACK_SIGNING_SECRET_FILE": "/etc/slack-secrets/slack-signing-secret",
		"KMS_KEY_NAME":              "test_kms_key",
		"REPLAY_WINDOW":             "2m",
		"DEBUG":                     "true",
	}

	withEnv(base, func() {
		t.Run("getEnvConfigWithError", func(t *testing.T) {
			got, err := getEnvironmentalConfig(
				envreader.WithViper(viper.New()),
				envreader.WithPodInterface(testPod),
				envreader.WithFilesystem(testioutil))
			if err == nil {
				t.Errorf("getEnvironmentalConfig() error = nil without PROJECT_ID")
			}
			if got != nil {
				t.Errorf("getEnvironmentalConfig() = %v, want nil", spew.Sdump(got))
			}
		})

		withEnv(map[string]string{"PROJECT_ID": "test_project"}, func() {
			t.Run("getEnvConfig", func(t *testing.T) {
				want := &envConfig{
					projectID:        "test_project",
					logName:          "test_log_name",
					serverPort:       "test_server_port",
					podName:          "test_pod_name",
					natsURL:          "nats://test_nats:4222",
					subjectPrefix:    "slack.interactions",
					redisPort:        "test_redis_port",
					redisHosts:       []string{"test_ip"},
					encSigningSecret: base64.StdEncoding.EncodeToString([]byte("test_file_contents")),
					kmsKeyName:       "test_kms_key",
					replayWindow:     2 * time.Minute,
					debug:            true,
				}
				got, err := getEnvironmentalConfig(
					envreader.WithViper(viper.New()),
					envreader.WithPodInterface(testPod),
					envreader.WithFilesystem(testioutil))
				if err != nil {
					t.Fatalf("getEnvironmentalConfig() error = %v", err)
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("getEnvironmentalConfig() = %+v, want %+v", spew.Sdump(got), spew.Sdump(want))
				}
			})
		})
	})
}

func Test_getEnvironmentalConfig_Local(t *testing.T) {
	v := viper.New()
	v.Set("project_id", "p")
	v.Set("log_name", "l")
	v.Set("server_port", ":8080")
	v.Set("nats_url", "nats://localhost:4222")
	v.Set("local", "true")
	v.Set("redis_addrs", "localhost:6379")
	v.Set("slack_signing_secret", "secret")

	got, err := getEnvironmentalConfig(envreader.WithViper(v))
	if err != nil {
		t.Fatalf("getEnvironmentalConfig() error = %v", err)
	}
	if got.signingSecret != "secret" || got.encSigningSecret != "" {
		t.Errorf("signing secret = %q, ciphertext = %q", got.signingSecret, got.encSigningSecret)
	}
	if want := []string{"localhost:6379"}; !reflect.DeepEqual(got.redisAddresses(), want) {
		t.Errorf("redisAddresses() = %v, want %v", got.redisAddresses(), want)
	}
	if got.replayWindow != 5*time.Minute {
		t.Errorf("replayWindow = %v", got.replayWindow)
	}
}

func Test_getEnvironmentalConfig_SecretRequired(t *testing.T) {
	v := viper.New()
	v.Set("project_id", "p")
	v.Set("log_name", "l")
	v.Set("server_port", ":8080")
	v.Set("nats_url", "nats://localhost:4222")
	v.Set("redis_addrs", "10.0.0.1")

	if _, err := getEnvironmentalConfig(envreader.WithViper(v)); err == nil {
		t.Errorf("expected an error without a signing secret outside local mode")
	}
}

func Test_redisAddresses(t *testing.T) {
	c := &envConfig{redisPort: "6379", redisHosts: []string{"10.0.0.1", " 10.0.0.2 ", "redis:7000"}}
	want := []string{"10.0.0.1:6379", "10.0.0.2:6379", "redis:7000"}
	if got := c.redisAddresses(); !reflect.DeepEqual(got, want) {
		t.Errorf("redisAddresses() = %v, want %v", got, want)
	}
}
