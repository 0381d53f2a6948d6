// Crewd is the multi-agent orchestration daemon. It runs LLM worker
// crews against user goals: a planner proposes an execution plan, the
// control loop dispatches workers step by step, human checkpoints gate
// the planner/coder/reviewer stages, and artifacts accumulate in a
// versioned store.
//
// Configuration is loaded from ~/.config/crewd/config.yaml and
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	crewd
//
//	# Configure via environment
//	SERVER_HTTP_PORT=8420 LLM_ANTHROPIC_API_KEY=sk-... crewd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/config"
	"github.com/fyrsmithlabs/crewd/internal/events"
	"github.com/fyrsmithlabs/crewd/internal/gate"
	crewdhttp "github.com/fyrsmithlabs/crewd/internal/http"
	"github.com/fyrsmithlabs/crewd/internal/interrupt"
	"github.com/fyrsmithlabs/crewd/internal/llm"
	"github.com/fyrsmithlabs/crewd/internal/logging"
	"github.com/fyrsmithlabs/crewd/internal/orchestrator"
	"github.com/fyrsmithlabs/crewd/internal/plan"
	"github.com/fyrsmithlabs/crewd/internal/session"
	"github.com/fyrsmithlabs/crewd/internal/telemetry"
	"github.com/fyrsmithlabs/crewd/internal/worker"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/crewd/config.yaml)")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  crewd           Start the crewd daemon\n")
			fmt.Fprintf(os.Stderr, "  crewd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("crewd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the crewd server and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("starting crewd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("service", cfg.Observability.ServiceName))

	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Observability.EnableTelemetry,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Observability.OTLPEndpoint,
		Protocol:       cfg.Observability.OTLPProtocol,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	publisher, subscriber, closeEvents, err := initEvents(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	client := llm.NewMultiClient(llm.Config{
		OpenAIKey:         cfg.LLM.OpenAIAPIKey.Value(),
		AnthropicKey:      cfg.LLM.AnthropicAPIKey.Value(),
		GoogleAIKey:       cfg.LLM.GoogleAPIKey.Value(),
		RequestsPerSecond: cfg.LLM.RateLimitRPS,
		Burst:             cfg.LLM.RateLimitBurst,
	}, logger)

	registry := worker.DefaultRegistry()

	var tools worker.ToolCaller
	if cfg.LLM.MCPCommand != "" {
		caller, err := worker.ConnectMCP(ctx, cfg.LLM.MCPCommand, cfg.LLM.MCPArgs...)
		if err != nil {
			return fmt.Errorf("failed to connect MCP tool server: %w", err)
		}
		defer func() {
			if err := caller.Close(); err != nil {
				logger.Warn("MCP close failed", zap.Error(err))
			}
		}()
		tools = caller
		logger.Info("MCP tool server connected", zap.String("command", cfg.LLM.MCPCommand))
	}

	roster := worker.BuildRoster(registry, client, tools, logger)
	strategy := plan.NewLLMStrategy(client, cfg.LLM.OrchestratorModel, registry.Describe(), logger)

	g := gate.New(cfg.Checkpoint.Timeout.Duration())
	if cfg.Checkpoint.Disabled {
		g = gate.Disabled()
	}

	engine := orchestrator.New(orchestrator.Config{
		Roster:   roster,
		Strategy: strategy,
		Decider:  strategy,
		Gate:     g,
		Events:   publisher,
		Logger:   logger,
	})

	interrupts := interrupt.NewHandler(
		interrupt.NewLLMClassifier(client, cfg.LLM.OrchestratorModel),
		interrupt.DefaultConfidenceThreshold,
		logger,
	)

	srv, err := crewdhttp.NewServer(
		session.NewManager(logger),
		engine,
		interrupts,
		subscriber,
		logger,
		crewdhttp.Config{
			Port:           cfg.Server.Port,
			IterationLimit: cfg.Session.IterationLimit,
			StepLimit:      cfg.Session.StepLimit,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initEvents connects the event transport: NATS when configured, the
// in-process bus otherwise.
func initEvents(cfg *config.Config, logger *zap.Logger) (events.Publisher, events.Subscriber, func(), error) {
	if cfg.Events.NATSURL == "" {
		bus := events.NewBus()
		logger.Info("using in-process event bus")
		return bus, bus, func() {}, nil
	}

	nc, err := nats.Connect(cfg.Events.NATSURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Events.NATSURL, err)
	}
	logger.Info("connected to NATS", zap.String("url", cfg.Events.NATSURL))

	p := events.NewNATSPublisher(nc, logger)
	return p, p, nc.Close, nil
}
