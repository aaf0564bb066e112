// Command moltisgw is the gateway's composition root: it loads
// configuration, wires every collaborator package, and serves the
// WebSocket/HTTP transport until a shutdown signal arrives.
//
// Usage:
//
//	moltisgw serve                      # start the gateway
//	moltisgw serve --config gw.yaml     # specify a config file
//	moltisgw version                    # print build metadata
//	moltisgw health                     # probe a running gateway's /health
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/moltis/gateway/internal/broadcast"
	"github.com/moltis/gateway/internal/channels"
	"github.com/moltis/gateway/internal/config"
	"github.com/moltis/gateway/internal/credentials"
	"github.com/moltis/gateway/internal/cron"
	"github.com/moltis/gateway/internal/gwstate"
	"github.com/moltis/gateway/internal/hooks"
	"github.com/moltis/gateway/internal/metrics"
	"github.com/moltis/gateway/internal/methods"
	"github.com/moltis/gateway/internal/pairing"
	"github.com/moltis/gateway/internal/providerregistry"
	"github.com/moltis/gateway/internal/sandbox"
	"github.com/moltis/gateway/internal/telemetry"
	"github.com/moltis/gateway/internal/voice"
	"github.com/moltis/gateway/internal/wire"
)

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
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting moltis gateway",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	if _, err := telemetry.Init(cfg.Telemetry, logger); err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	configDir, err := cfg.ResolveConfigDir()
	if err != nil {
		logger.Fatal("failed to resolve config dir", zap.Error(err))
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		logger.Fatal("failed to create config dir", zap.Error(err), zap.String("dir", configDir))
	}

	collector := metrics.NewCollector()
	collector.MustRegister(prometheus.DefaultRegisterer)

	homeStore := buildHomeStore(cfg.Gateway.ConfigDir, configDir)

	providerReg := providerregistry.New()
	sources := providerregistry.DefaultSources(
		homeStore,
		credentials.ProviderKeyStore{},
		nil,
		nil,
		nil,
		cfg.Gateway.DeployPlatform,
		cfg.Gateway.OfferedProviders,
	)
	rebuilder := providerregistry.NewRebuilder(providerReg, sources, logger)
	rebuilder.SetMetrics(collector)
	if err := rebuilder.Trigger(context.Background()); err != nil {
		logger.Warn("initial provider registry build failed", zap.Error(err))
	}

	gw := gwstate.New(logger, providerReg)
	gw.SetMetrics(collector)
	gw.PendingInvokes.SetMetrics(collector)
	deviceSecret := deviceTokenSecret(cfg.Gateway.DeviceTokenSecret, logger)
	tokenIssuer := pairing.NewTokenIssuer(deviceSecret)
	pairingReg := pairing.NewRegistry(tokenIssuer, logger)

	disabledHooksPath := configDir + "/disabled_hooks.json"
	hookRegistry := hooks.NewRegistry(cfg.Gateway.HookRoots, disabledHooksPath, logger)
	if err := hookRegistry.LoadDisabled(); err != nil {
		logger.Warn("failed to load disabled hooks", zap.Error(err))
	}
	if err := hookRegistry.Discover(); err != nil {
		logger.Warn("hook discovery failed", zap.Error(err))
	}

	runCtx, cancelRun := context.WithCancel(context.Background())

	credentialWatcher := config.NewFileWatcher([]string{
		homeStore.Primary().KeysPath(),
		homeStore.Primary().OAuthPath(),
		disabledHooksPath,
	}, logger)
	credentialWatcher.OnChange(func(path string) {
		logger.Info("config file changed on disk, queuing rebuild", zap.String("path", path))
		rebuilder.TriggerAsync(context.Background())
		if path == disabledHooksPath {
			if err := hookRegistry.LoadDisabled(); err != nil {
				logger.Warn("failed to reload disabled hooks", zap.Error(err))
			}
		}
	})
	if err := credentialWatcher.Start(runCtx); err != nil {
		logger.Warn("failed to start config file watcher", zap.Error(err))
	}

	channelRegistry := channels.NewRegistry()
	overrides := sandbox.NewOverrides()
	voiceMgr := voice.NewManager(overrides)

	broadcaster := broadcast.NewBroadcaster(
		func() []broadcast.Target {
			conns := gw.Clients.Values()
			targets := make([]broadcast.Target, len(conns))
			for i, c := range conns {
				targets[i] = c
			}
			return targets
		},
		func(t broadcast.Target) uint64 {
			if c, ok := t.(*gwstate.Connection); ok {
				return c.NextSeq()
			}
			return 0
		},
		logger,
	)
	broadcaster.SetMetrics(collector)

	scheduler := cron.NewScheduler(
		func(ctx context.Context, job cron.Job) error {
			return broadcaster.Broadcast("cron.run", map[string]any{"job_id": job.ID, "name": job.Name}, broadcast.Options{
				DropIfSlow: true,
				Audience:   broadcast.OperatorsOnly(),
			})
		},
		cron.DefaultHeartbeatFilePath(configDir),
		logger,
	)
	if job, err := scheduler.UpsertHeartbeat(
		"@every "+cfg.Heartbeat.Every.String(),
		cfg.Heartbeat.Enabled,
		cfg.Heartbeat.Prompt,
		cfg.Heartbeat.Model,
		cfg.Heartbeat.SandboxEnabled,
		cfg.Heartbeat.SandboxImage,
	); err != nil {
		logger.Warn("failed to install heartbeat job", zap.Error(err))
	} else {
		gw.SetHeartbeat(gwstate.HeartbeatSnapshot{
			Enabled:       job.Enabled,
			Every:         job.Schedule,
			Prompt:        job.Prompt,
			Model:         job.Model,
			SandboxEnable: job.SandboxEnable,
			SandboxImage:  job.SandboxImage,
		})
	}
	scheduler.Start()

	methodRegistry := methods.NewRegistry(logger)
	methodRegistry.SetMetrics(collector)
	methods.RegisterAll(methodRegistry, methods.Deps{
		Log:         logger,
		Gateway:     gw,
		Broadcaster: broadcaster,
		Pairing:     pairingReg,
		Hooks:       hookRegistry,
		Cron:        scheduler,
		Channels:    channelRegistry,
		Sandbox:     overrides,
		Voice:       voiceMgr,
		Rebuilder:   rebuilder,
		Credentials: homeStore,
	})

	authenticator := wire.NewTokenAuthenticator(cfg.Gateway.OperatorTokens, tokenIssuer)
	transport := wire.NewServer(gw, methodRegistry, authenticator, wire.Config{
		TickInterval: cfg.Server.TickInterval,
	}, logger)

	mux := http.NewServeMux()
	mux.Handle("/", transport.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- gw.Run(runCtx, transport.TickLoop(func(event string, payload any) error {
			return broadcaster.Broadcast(event, payload, broadcast.Options{DropIfSlow: true})
		}))
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP/WebSocket server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			logger.Error("server exited unexpectedly", zap.Error(err))
		}
	}

	logger.Info("starting graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	cancelShutdown()
	transport.Close()
	credentialWatcher.Stop()

	hbStopCtx := scheduler.Stop()
	<-hbStopCtx.Done()

	cancelRun()
	if err := <-runErr; err != nil {
		logger.Debug("background task group exited", zap.Error(err))
	}

	logger.Info("moltis gateway stopped")
}

// buildHomeStore wires credentials.NewHomeStore, skipping the secondary
// home-directory lookup when the resolved config dir already IS the user's
// home configuration directory (§4.2).
func buildHomeStore(configuredDir, resolvedDir string) *credentials.HomeStore {
	home, err := os.UserHomeDir()
	if err != nil {
		return credentials.NewHomeStore(resolvedDir, "")
	}
	homeConfigDir := home + "/.config/moltis"
	return credentials.NewHomeStore(resolvedDir, homeConfigDir)
}

// deviceTokenSecret returns the configured secret, or a freshly generated
// one logged as a warning: device tokens minted by a previous process will
// stop verifying, which is expected for a from-scratch dev run.
func deviceTokenSecret(configured string, log *zap.Logger) []byte {
	if configured != "" {
		return []byte(configured)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatal("failed to generate device token secret", zap.Error(err))
	}
	log.Warn("no device_token_secret configured, generated an ephemeral one; existing device pairings will need to re-pair")
	return []byte(hex.EncodeToString(buf))
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:7890", "Gateway address")
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
	fmt.Printf("moltisgw %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`moltisgw - Moltis gateway

Usage:
  moltisgw <command> [options]

Commands:
  serve     Start the gateway
  version   Show version information
  health    Check gateway health
  help      Show this help message

Options for 'serve':
  --config <path>   Path to configuration file (YAML)

Examples:
  moltisgw serve
  moltisgw serve --config /etc/moltis/gateway.yaml
  moltisgw health --addr http://localhost:7890
  moltisgw version`)
}

// initLogger builds a zap.Logger from cfg, following the console/json
// encoder split the rest of the stack expects from LogConfig.
func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format != "console" {
		zapConfig.Encoding = "json"
	}

	logger, err := zapConfig.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
