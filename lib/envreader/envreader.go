// Package envreader gathers configuration from the environment, an optional
// config file and bound flags, remembering every required key that was missing.
package envreader

import (
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	v1 "k8s.io/client-go/kubernetes/typed/core/v1"
	"k8s.io/client-go/rest"
)

// IoutilInterface is the file access EnvReader needs.
type IoutilInterface interface {
	ReadFile(filename string) ([]byte, error)
}

type osFilesystem struct{}

func (osFilesystem) ReadFile(filename string) ([]byte, error) { return ioutil.ReadFile(filename) }

type EnvReader struct {
	MissingKeys []string
	Errors      bool

	v            *viper.Viper
	fs           IoutilInterface
	podInterface v1.PodInterface
}

// Option configures an EnvReader.
type Option func(*EnvReader)

// WithViper reads through v instead of a fresh viper instance.
func WithViper(v *viper.Viper) Option {
	return func(r *EnvReader) { r.v = v }
}

// WithFilesystem replaces file access, for tests.
func WithFilesystem(fs IoutilInterface) Option {
	return func(r *EnvReader) { r.fs = fs }
}

// WithPodInterface replaces the in-cluster pod client, for tests.
func WithPodInterface(pi v1.PodInterface) Option {
	return func(r *EnvReader) { r.podInterface = pi }
}

// New returns an EnvReader whose viper instance reads the environment.
func New(opts ...Option) *EnvReader {
	r := &EnvReader{fs: osFilesystem{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.v == nil {
		r.v = viper.New()
	}
	r.v.AutomaticEnv()
	return r
}

func (r *EnvReader) missing(key string) {
	r.Errors = true
	r.MissingKeys = append(r.MissingKeys, key)
}

// Err returns an error naming every missing key, or nil.
func (r *EnvReader) Err() error {
	if !r.Errors {
		return nil
	}
	return fmt.Errorf("Could not gather config. Failed variables: %v", r.MissingKeys)
}

func (r *EnvReader) lookup(key string) (string, bool) {
	k := strings.ToLower(key)
	if !r.v.IsSet(k) {
		return "", false
	}
	return r.v.GetString(k), true
}

func (r *EnvReader) GetEnv(key string) string {
	if value, ok := r.lookup(key); ok {
		return value
	}
	r.missing(key)
	return ""
}
func (r *EnvReader) GetEnvOpt(key string) string {
	value, _ := r.lookup(key)
	return value
}
func (r *EnvReader) GetEnvDefault(key string, def string) string {
	if value, ok := r.lookup(key); ok && value != "" {
		return value
	}
	return def
}
func (r *EnvReader) GetEnvBool(key string) bool {
	text := r.GetEnv(key)
	if value, err := strconv.ParseBool(text); err == nil {
		return value
	}
	return false
}
func (r *EnvReader) GetEnvBoolOpt(key string) bool {
	text := r.GetEnvOpt(key)
	if value, err := strconv.ParseBool(text); err == nil {
		return value
	}
	return false
}
func (r *EnvReader) GetEnvFloat(key string) float64 {
	text := r.GetEnv(key)
	if value, err := strconv.ParseFloat(text, 64); err == nil {
		return value
	}
	return 0
}

// GetEnvDurationOpt parses key as a time.Duration. Unset keys yield def;
// unparseable ones are recorded as missing.
func (r *EnvReader) GetEnvDurationOpt(key string, def time.Duration) time.Duration {
	text, ok := r.lookup(key)
	if !ok || text == "" {
		return def
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		r.missing(key)
		return def
	}
	return d
}

// GetEnvList splits a comma separated value, dropping empty entries.
func (r *EnvReader) GetEnvList(key string) []string {
	var out []string
	for _, s := range strings.Split(r.GetEnvOpt(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *EnvReader) GetFromFile(path string) []byte {
	content, err := r.fs.ReadFile(path)
	if err != nil {
		r.missing("file at: " + path)
		return nil
	}
	return content
}

func (r *EnvReader) getPodInterface(namespace string) (v1.PodInterface, error) {
	if r.podInterface != nil {
		return r.podInterface, nil
	}
	// creates the in-cluster config
	config, err := rest.InClusterConfig()
	if err != nil {
		log.Printf("Could not list pods. Error creating Kubernetes InClusterConfig: %s", err)
		return nil, err
	}
	// creates the clientset
	kubernetesClient, err := kubernetes.NewForConfig(config)
	if err != nil {
		log.Printf("Could not list pods. Error creating Kubernetes Client: %s", err)
		return nil, err
	}
	r.podInterface = kubernetesClient.CoreV1().Pods(namespace)
	return r.podInterface, nil
}

// GetPodHosts returns the pod IPs matching labelSelector.
func (r *EnvReader) GetPodHosts(namespace string, labelSelector string) []string {
	pods, err := r.getPodInterface(namespace)
	if err != nil {
		r.missing(fmt.Sprintf("PodHosts: %s.%s", namespace, labelSelector))
		return nil
	}
	list, err := pods.List(context.TODO(), metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		r.missing(fmt.Sprintf("PodHosts: %s.%s", namespace, labelSelector))
		return nil
	}
	var hosts []string
	for i := 0; i < len(list.Items); i++ {
		if ip := list.Items[i].Status.PodIP; ip != "" {
			hosts = append(hosts, ip)
		}
	}
	return hosts
}
