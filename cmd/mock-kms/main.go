// Command mock-kms stands in for Cloud KMS when running slack-receiver
// locally. It can also encrypt a signing secret into a ciphertext file.
package main

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"os"

	log "github.com/aasmall/slack-receiver/lib/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "mock-kms",
	Short:        "Local Cloud KMS stand-in",
	SilenceUsage: true,
}

func serveCmd() *cobra.Command {
	var addr, certFile, keyFile string
	var debug bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the KMS encrypt and decrypt endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := &kms{key: mockKey, log: log.New("", log.WithLocal(true), log.WithDebug(debug), log.WithPrefix("mock-kms: "))}
			k.log.Infof("listening on %s", addr)
			if certFile != "" {
				return http.ListenAndServeTLS(addr, certFile, keyFile, newRouter(k))
			}
			return http.ListenAndServe(addr, newRouter(k))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":40080", "listen address")
	cmd.Flags().StringVar(&certFile, "tls-cert", "", "TLS certificate, enables TLS")
	cmd.Flags().StringVar(&keyFile, "tls-key", "", "TLS key")
	cmd.Flags().BoolVar(&debug, "debug", false, "log decryptions")
	return cmd
}

func encryptCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "encrypt <plaintext>",
		Short: "Encrypt plaintext with the mock key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ciphertext, err := encrypt(mockKey, []byte(args[0]))
			if err != nil {
				return err
			}
			if out == "" {
				_, err = os.Stdout.Write(ciphertext)
				return err
			}
			return ioutil.WriteFile(out, ciphertext, 0600)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "ciphertext file (default stdout)")
	return cmd
}

func decryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <ciphertext-file>",
		Short: "Decrypt a ciphertext file with the mock key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ciphertext, err := ioutil.ReadFile(args[0])
			if err != nil {
				return err
			}
			plaintext, err := decrypt(mockKey, ciphertext)
			if err != nil {
				return err
			}
			fmt.Println(string(plaintext))
			return nil
		},
	}
}

func main() {
	rootCmd.AddCommand(serveCmd(), encryptCmd(), decryptCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
