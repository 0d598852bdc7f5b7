package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/runpod/vllm/pkg/audit"
	"github.com/runpod/vllm/pkg/audit/recorder"
	"github.com/runpod/vllm/pkg/audit/retention"
	"github.com/runpod/vllm/pkg/audit/storage"
	"github.com/runpod/vllm/pkg/cli"
	"github.com/runpod/vllm/pkg/config"
	"github.com/runpod/vllm/pkg/engine"
	"github.com/runpod/vllm/pkg/engine/remote"
	"github.com/runpod/vllm/pkg/length"
	"github.com/runpod/vllm/pkg/prompt"
	"github.com/runpod/vllm/pkg/proxy/handlers"
	"github.com/runpod/vllm/pkg/queue"
	"github.com/runpod/vllm/pkg/server"
	"github.com/runpod/vllm/pkg/telemetry/health"
	"github.com/runpod/vllm/pkg/telemetry/logging"
	"github.com/runpod/vllm/pkg/telemetry/metrics"
	"github.com/runpod/vllm/pkg/telemetry/tracing"
	"github.com/runpod/vllm/pkg/tokenizer"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	servedModel   string
	engineURL     string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway server",
	Long: `Start the gateway server with the specified configuration.

The server connects to the generation engine, reads the model's context
window, and serves the OpenAI-compatible API on the configured address.

Examples:
  # Start with config.yaml from the working directory
  vllm-gateway run

  # Start with a custom config
  vllm-gateway run --config /etc/vllm/gateway.yaml

  # Override the listen address and served model name
  vllm-gateway run --listen 0.0.0.0:8000 --served-model facebook/opt-125m

  # Validate config without starting the server
  vllm-gateway run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.servedModel, "served-model", "", "override the served model name")
	runCmd.Flags().StringVar(&runFlags.engineURL, "engine-url", "", "override the engine base URL")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

// applyRunFlags copies non-empty run flags onto cfg.
func applyRunFlags(cfg *config.Config) {
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.servedModel != "" {
		cfg.Model.ServedName = runFlags.servedModel
	}
	if runFlags.engineURL != "" {
		cfg.Engine.BaseURL = runFlags.engineURL
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(applyRunFlags)
	if err != nil {
		return err
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	printBanner(out, cfg)

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	eng := remote.New(remote.Config{
		BaseURL:      cfg.Engine.BaseURL,
		Timeout:      cfg.Engine.Timeout,
		MaxRetries:   cfg.Engine.MaxRetries,
		RetryBackoff: cfg.Engine.RetryBackoff,
	})
	defer eng.Close()

	stack, err := newGatewayStack(ctx, cfg, eng, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		stack.close(closeCtx)
		fmt.Fprintln(out, "✓ Server stopped")
	}()

	fmt.Fprintf(out, "✓ Engine connected (%s)\n", cfg.Engine.BaseURL)
	fmt.Fprintf(out, "✓ Serving model %s\n", cfg.Model.ServedName)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := stack.run(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "vllm-gateway v%s\n", Version)
	fmt.Fprintf(w, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintln(w, "✓ Configuration loaded")

	if verbose {
		fmt.Fprintf(w, "  listen:  %s\n", cfg.Server.ListenAddress)
		fmt.Fprintf(w, "  engine:  %s\n", cfg.Engine.BaseURL)
		fmt.Fprintf(w, "  audit:   %v\n", cfg.Audit.Enabled)
		fmt.Fprintf(w, "  tracing: %v\n", cfg.Telemetry.Tracing.Enabled)
	}
}

// gatewayStack holds the long-lived components of a running gateway.
type gatewayStack struct {
	cfg    *config.Config
	logger *slog.Logger

	tokens   *tokenizer.Cached
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	watcher  *prompt.Watcher
	poller   *queue.Poller
	store    audit.Storage
	recorder *recorder.Recorder
	pruner   *retention.Pruner
	server   *server.Server
}

// newGatewayStack wires every component around eng. The model's context
// window is read from the engine, so it must be reachable.
func newGatewayStack(ctx context.Context, cfg *config.Config, eng engine.Engine, logger *slog.Logger) (_ *gatewayStack, err error) {
	s := &gatewayStack{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			s.close(context.Background())
		}
	}()

	bpe, err := tokenizer.NewBPE(cfg.Tokenizer.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}
	s.tokens = tokenizer.NewCached(bpe, cfg.Tokenizer.CacheTTL, cfg.Tokenizer.CacheCapacity)
	s.tokens.Start()

	s.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	s.metrics.RegisterCache("prompt_tokens", s.tokens)

	guard, err := length.FromEngine(ctx, eng, s.tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to read model context window: %w", err)
	}
	logger.Info("model context window resolved", "context_window", guard.ContextWindow())

	registry := prompt.NewRegistry()
	if path := cfg.Model.TemplateFile; path != "" {
		if err := registry.LoadFile(path); err != nil {
			return nil, err
		}
		if cfg.Model.WatchTemplates {
			s.watcher, err = prompt.NewWatcher(path, registry, 0, logger)
			if err != nil {
				return nil, err
			}
		}
	}
	assembler, err := prompt.NewAssembler(registry, cfg.Model.Template)
	if err != nil {
		return nil, err
	}
	logger.Info("conversation template selected",
		"model", cfg.Model.ServedName,
		"template", assembler.Template(cfg.Model.ServedName).Name(),
	)

	s.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("engine", health.EngineCheck(eng))
	checker.RegisterCheck("model", health.ModelCheck(eng))

	introspector := queue.NewIntrospector(eng)
	if cfg.Queue.PollInterval > 0 {
		s.poller = queue.NewPoller(introspector, s.metrics, cfg.Queue.PollInterval, logger)
	}

	gwCfg := handlers.Config{
		ServedModel: cfg.Model.ServedName,
		Engine:      eng,
		Assembler:   assembler,
		Guard:       guard,
		Tokenizer:   s.tokens,
		MaxN:        cfg.Engine.MaxN,
		Metrics:     s.metrics,
		Tracer:      s.tracer,
	}

	if cfg.Audit.Enabled {
		s.store, err = storage.New(&cfg.Audit)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit storage: %w", err)
		}
		s.recorder = recorder.New(s.store, &cfg.Audit.Recorder)
		s.pruner = retention.NewPruner(s.store, cfg.Audit.Retention)
		gwCfg.Recorder = s.recorder
		logger.Info("request audit log enabled", "backend", cfg.Audit.Backend)
	}

	gw, err := handlers.NewGateway(gwCfg)
	if err != nil {
		return nil, err
	}

	s.server = server.NewServer(cfg, server.Routes{
		Gateway: gw,
		Queue:   introspector,
		Health:  checker,
		Metrics: s.metrics,
		Version: versionInfo(),
	})
	return s, nil
}

// run serves until ctx is cancelled or a component fails.
func (s *gatewayStack) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.server.Start(gctx)
	})

	if s.poller != nil {
		g.Go(func() error {
			s.poller.Run(gctx)
			return nil
		})
	}

	if s.watcher != nil {
		g.Go(func() error {
			return s.watcher.Watch(gctx)
		})
	}

	if s.pruner != nil {
		if err := s.pruner.Start(gctx); err != nil {
			s.logger.Warn("failed to start audit retention scheduler", "error", err)
		} else if next := s.pruner.NextPruning(); next != nil {
			s.logger.Debug("audit retention scheduler started", "next_pruning", next.Format(time.RFC3339))
		}
	}

	return g.Wait()
}

// close releases every component in reverse order of construction.
func (s *gatewayStack) close(ctx context.Context) {
	if s.pruner != nil {
		s.pruner.Stop()
	}
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("failed to stop template watcher", "error", err)
		}
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			s.logger.Warn("failed to flush audit records", "error", err)
		}
		if dropped, failed := s.recorder.Dropped(), s.recorder.Failed(); dropped > 0 || failed > 0 {
			s.logger.Warn("audit records lost", "dropped", dropped, "failed", failed)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close audit storage", "error", err)
		}
	}
	if s.tracer != nil {
		if err := s.tracer.Shutdown(ctx); err != nil {
			s.logger.Warn("failed to flush traces", "error", err)
		}
	}
	if s.tokens != nil {
		s.tokens.Stop()
	}
}
