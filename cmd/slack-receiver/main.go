// Command slack-receiver accepts Slack interactive component webhooks,
// normalizes them and hands them to downstream handlers over NATS.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "slack-receiver",
	Short: "Slack interactive component receiver",
	Long: `slack-receiver verifies and normalizes Slack block actions, view
submissions, message actions and options requests, then publishes them to
NATS for downstream handlers.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Slack interaction endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")

	serveCmd.Flags().String("port", "", "listen address, e.g. :8080 (SERVER_PORT)")
	serveCmd.Flags().String("nats-url", "", "NATS server url (NATS_URL)")
	serveCmd.Flags().String("subject-prefix", "", "NATS subject prefix (SUBJECT_PREFIX)")
	serveCmd.Flags().Bool("debug", false, "log debug messages (DEBUG)")
	serveCmd.Flags().Bool("local", false, "log to stdout and skip cluster discovery (LOCAL)")
	v.BindPFlag("server_port", serveCmd.Flags().Lookup("port"))
	v.BindPFlag("nats_url", serveCmd.Flags().Lookup("nats-url"))
	v.BindPFlag("subject_prefix", serveCmd.Flags().Lookup("subject-prefix"))
	v.BindPFlag("debug", serveCmd.Flags().Lookup("debug"))
	v.BindPFlag("local", serveCmd.Flags().Lookup("local"))

	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	if cfgFile == "" {
		return
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
