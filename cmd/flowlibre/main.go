// Package main provides the flowlibre launcher plugin and its debugging commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dasmlab/flowlibre/pkg/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	baseURL    string
	apiKey     string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "flowlibre",
		Short: "LibreTranslate plugin for launcher search bars",
		Long: `flowlibre translates text typed into a launcher search bar using a
LibreTranslate server.

Queries have the form "<source> <target> <text>", for example "en es hello".
While the language codes are being typed, matching languages are suggested.

Available commands:
  serve      - Run as a launcher plugin speaking JSON-RPC over stdio
  query      - Answer one query from the terminal
  languages  - List the languages the provider supports`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", os.Getenv(config.EnvPrefix+"CONFIG_FILE"), "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "LibreTranslate base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.apiKey, "api-key", "", "LibreTranslate API key (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newQueryCmd(flags))
	rootCmd.AddCommand(newLanguagesCmd(flags))

	return rootCmd
}

// loadConfig resolves the configuration and applies flags that were set explicitly.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = flags.baseURL
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = flags.apiKey
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
