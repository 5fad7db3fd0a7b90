// Eloquence studio entry point. One process serves one coaching room:
// it connects to the media gateway, assembles the persona ensemble for
// the room's exercise and exposes health and stats over HTTP.
//
// Usage:
//
//	studio serve                      # start with env configuration
//	studio serve --config studio.yaml # explicit config file
//	studio version                    # show version information
//	studio health                     # probe a running instance
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eloquence-ai/studio/config"
	"github.com/eloquence-ai/studio/generator"
	"github.com/eloquence-ai/studio/internal/kv"
	"github.com/eloquence-ai/studio/internal/metrics"
	"github.com/eloquence-ai/studio/internal/server"
	"github.com/eloquence-ai/studio/media"
	"github.com/eloquence-ai/studio/scenario"
	"github.com/eloquence-ai/studio/session"
	"github.com/eloquence-ai/studio/tts"
	"github.com/eloquence-ai/studio/voice"
)

// Injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	gatewayURL := fs.String("gateway", "", "Media gateway websocket URL (overrides config)")
	dev := fs.Bool("dev", false, "Development mode: skip provider credential checks")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	if !*dev {
		loader = loader.WithValidator(config.RequireCredentials)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *gatewayURL != "" {
		cfg.Media.URL = *gatewayURL
	}

	logger, err := cfg.Log.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting eloquence studio",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := kv.Open(cfg.Redis, logger)
	defer store.Close()

	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector("eloquence", promReg, logger)

	registry := voice.NewRegistry(voice.DefaultPersonas(), logger)
	ttsClient := tts.NewClient(cfg.TTS, registry, logger, tts.WithMetrics(collector))
	genClient := generator.NewClient(cfg.Generator, logger)
	scenarios := scenario.NewGenerator(store, logger)

	handler := server.NewHandler(server.StatsSources{
		TTS:             ttsClient,
		Interpellations: collector,
	}, promReg, logger)

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout

	srv := server.NewManager(handler, srvCfg, logger)
	if err := srv.Start(); err != nil {
		logger.Fatal("failed to start HTTP server", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Media.URL != "" {
		g.Go(func() error {
			return runRoom(gctx, cfg, session.Deps{
				Store:         store,
				TTS:           ttsClient,
				Generator:     genClient,
				Scenarios:     scenarios,
				AgentObserver: collector,
				QueueObserver: collector,
			}, logger)
		})
	} else {
		logger.Warn("no media gateway configured, serving HTTP endpoints only")
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-srv.Errors():
			return err
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("studio stopped with error", zap.Error(err))
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	logger.Info("eloquence studio stopped")
}

// runRoom connects the media bridge, runs the session for the room and
// returns when the room closes or ctx is cancelled.
func runRoom(ctx context.Context, cfg *config.Config, deps session.Deps, logger *zap.Logger) error {
	bridge := media.NewBridge(cfg.Media, logger)
	if err := bridge.Connect(ctx); err != nil {
		return err
	}
	defer bridge.Close()

	deps.Plane = bridge
	deps.Transcriber = bridge

	sess, err := session.New(ctx, cfg.Session, deps, logger)
	if err != nil {
		return fmt.Errorf("assemble session: %w", err)
	}

	logger.Info("session assembled",
		zap.String("session_id", sess.ID),
		zap.String("exercise", sess.Exercise.ID),
	)
	return sess.Run(ctx)
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("OK")
}

func printVersion() {
	fmt.Printf("Eloquence Studio %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`Eloquence Studio - multi-agent voice coaching orchestrator

Usage:
  studio <command> [options]

Commands:
  serve     Join a coaching room and serve health/stats endpoints
  version   Show version information
  health    Check a running instance
  help      Show this help message

Options for 'serve':
  --config <path>   Path to configuration file (YAML)
  --gateway <url>   Media gateway websocket URL
  --dev             Skip provider credential checks

Examples:
  studio serve --config /etc/eloquence/studio.yaml
  studio serve --gateway ws://localhost:7880/rooms/abc123
  studio health --addr http://localhost:8080
  studio version`)
}
