package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runpod/vllm/pkg/cli"
	"github.com/runpod/vllm/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vllm-gateway",
	Short: "OpenAI-compatible API gateway for a text generation engine",
	Long: `vllm-gateway exposes a text generation engine through the OpenAI chat
completions and completions APIs.

It serves a single model and provides:
  - Chat and text completions, streamed as server-sent events or buffered
  - Conversation templates for chat prompts
  - Prompt length checks against the model context window
  - Engine queue introspection for autoscalers
  - An optional request audit log

Configuration is read from a YAML file and VLLM_GATEWAY_* environment
variables; a missing file is not an error.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads cfgFile with environment overrides, applies override,
// validates the result and installs it as the process configuration.
func loadConfig(override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.LoadWithOverrides(cfgFile, override)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	config.SetConfig(cfg)
	return cfg, nil
}
