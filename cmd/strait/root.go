package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "strait",
	Short: "Strait - Bedrock-to-OpenAI protocol translation gateway",
	Long: `Strait is a protocol-translation gateway that exposes the Bedrock Converse
API in front of any OpenAI-compatible backend.

It accepts requests in either protocol and forwards them to a single
backend, providing:
  - Converse JSON and binary event-stream translation
  - Server-side conversation history with session ownership
  - Managed prompt references with variable substitution
  - Federated user provisioning and key generation
  - Token usage accounting and Prometheus metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
