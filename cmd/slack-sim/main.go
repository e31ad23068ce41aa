// Command slack-sim sends signed sample interactions to a running
// slack-receiver, optionally watching mock-slack for what comes back.
package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	var (
		receiverURL string
		secret      string
		typ         string
		payloadFile string
		responseURL string
		snoopURL    string
		wait        time.Duration
	)
	cmd := &cobra.Command{
		Use:          "slack-sim",
		Short:        "Send a signed Slack interaction to slack-receiver",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload interface{}
			path := endpointFor(typ)
			if payloadFile != "" {
				b, err := ioutil.ReadFile(payloadFile)
				if err != nil {
					return err
				}
				var p map[string]interface{}
				if err := json.Unmarshal(b, &p); err != nil {
					return fmt.Errorf("%s: %w", payloadFile, err)
				}
				if t, ok := p["type"].(string); ok {
					path = endpointFor(t)
				}
				payload = p
			} else {
				p, err := samplePayload(typ, responseURL)
				if err != nil {
					return err
				}
				payload = p
			}

			done := make(chan struct{})
			snooped := make(chan error, 1)
			if snoopURL != "" {
				go func() { snooped <- snoop(snoopURL, os.Stdout, done) }()
			}

			s := &simulator{baseURL: receiverURL, secret: secret, httpClient: &http.Client{Timeout: 10 * time.Second}, now: time.Now}
			res, err := s.send(path, payload)
			if err != nil {
				close(done)
				return err
			}
			fmt.Printf("<< %d %s\n", res.Status, http.StatusText(res.Status))
			if len(strings.TrimSpace(string(res.Body))) > 0 {
				fmt.Printf("<< %s\n", pretty(res.Body))
			}

			if snoopURL == "" {
				return nil
			}
			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)
			select {
			case <-time.After(wait):
			case <-interrupt:
			case err := <-snooped:
				return err
			}
			close(done)
			return <-snooped
		},
	}
	cmd.Flags().StringVar(&receiverURL, "url", "http://localhost:8080", "slack-receiver base url")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("SLACK_SIGNING_SECRET"), "signing secret, unsigned when empty")
	cmd.Flags().StringVarP(&typ, "type", "t", "block_actions", "sample type: "+strings.Join(sampleTypes(), ", "))
	cmd.Flags().StringVarP(&payloadFile, "payload", "p", "", "send this JSON payload instead of a sample")
	cmd.Flags().StringVar(&responseURL, "response-url", "http://localhost:50082/response/sim", "response_url placed in samples")
	cmd.Flags().StringVar(&snoopURL, "snoop", "", "mock-slack snooper websocket, e.g. ws://localhost:50082/wss/snooper")
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to snoop for replies")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
