package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runpod/vllm/pkg/cli"
	"github.com/runpod/vllm/pkg/config"
	"github.com/runpod/vllm/pkg/prompt"
	"github.com/runpod/vllm/pkg/tokenizer"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the gateway configuration",
	Long: `Load the configuration file and environment overrides, validate every
field, and check that the referenced resources can be loaded:
  - the tokenizer encoding
  - the conversation template file, if any
  - the forced conversation template, if any

The engine is not contacted.

Examples:
  # Validate config.yaml from the working directory
  vllm-gateway validate

  # Validate a specific file and print the effective settings as JSON
  vllm-gateway validate --config /etc/vllm/gateway.yaml --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json, yaml")
}

// validationReport summarises the effective configuration.
type validationReport struct {
	Valid         bool     `json:"valid" yaml:"valid"`
	ListenAddress string   `json:"listen_address" yaml:"listen_address"`
	ServedModel   string   `json:"served_model" yaml:"served_model"`
	Template      string   `json:"template" yaml:"template"`
	Templates     []string `json:"templates" yaml:"templates"`
	EngineURL     string   `json:"engine_url" yaml:"engine_url"`
	Encoding      string   `json:"encoding" yaml:"encoding"`
	Audit         string   `json:"audit" yaml:"audit"`
	Tracing       bool     `json:"tracing" yaml:"tracing"`
	Metrics       bool     `json:"metrics" yaml:"metrics"`
}

func (r validationReport) Describe() []cli.Field {
	return []cli.Field{
		{Label: "Listen address", Value: r.ListenAddress},
		{Label: "Served model", Value: r.ServedModel},
		{Label: "Template", Value: r.Template},
		{Label: "Engine", Value: r.EngineURL},
		{Label: "Tokenizer", Value: r.Encoding},
		{Label: "Audit log", Value: r.Audit},
		{Label: "Tracing", Value: r.Tracing},
		{Label: "Metrics", Value: r.Metrics},
	}
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	report, err := buildValidationReport(cfg)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatText {
		fmt.Fprintln(out, "✓ Configuration valid")
	}
	return cli.NewFormatter(format).FormatTo(out, report)
}

// buildValidationReport loads the resources cfg refers to.
func buildValidationReport(cfg *config.Config) (*validationReport, error) {
	bpe, err := tokenizer.NewBPE(cfg.Tokenizer.Encoding)
	if err != nil {
		return nil, err
	}

	registry := prompt.NewRegistry()
	if cfg.Model.TemplateFile != "" {
		if err := registry.LoadFile(cfg.Model.TemplateFile); err != nil {
			return nil, err
		}
	}
	assembler, err := prompt.NewAssembler(registry, cfg.Model.Template)
	if err != nil {
		return nil, err
	}

	audit := "disabled"
	if cfg.Audit.Enabled {
		audit = cfg.Audit.Backend
		if audit == "sqlite" {
			audit = fmt.Sprintf("sqlite (%s, %s)", cfg.Audit.SQLite.Driver, cfg.Audit.SQLite.Path)
		}
	}

	return &validationReport{
		Valid:         true,
		ListenAddress: cfg.Server.ListenAddress,
		ServedModel:   cfg.Model.ServedName,
		Template:      assembler.Template(cfg.Model.ServedName).Name(),
		Templates:     registry.Names(),
		EngineURL:     cfg.Engine.BaseURL,
		Encoding:      bpe.Encoding(),
		Audit:         audit,
		Tracing:       cfg.Telemetry.Tracing.Enabled,
		Metrics:       cfg.Telemetry.Metrics.Enabled,
	}, nil
}
