package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"gridbalancer/internal/balancer"
	"gridbalancer/internal/circuit"
	"gridbalancer/internal/config"
	"gridbalancer/internal/metrics"
	"gridbalancer/internal/poller"
	"gridbalancer/internal/registry"
	"gridbalancer/internal/router"
	"gridbalancer/internal/types"
	"gridbalancer/pkg/api"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Configuration file path")
		showVersion = flag.Bool("version", false, "Show version information")
		validate    = flag.Bool("validate", false, "Validate configuration and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("gridbalancer %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Bootstrap logger; rebuilt once the configured level is known
	zapLogger, err := initLogger("info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := wrapZapLogger(zapLogger)

	loader := config.NewLoader(*configFile, logger)
	cfg, err := loader.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *validate {
		logger.Info("Configuration is valid")
		os.Exit(0)
	}

	if cfg.Logging.Level != "info" {
		_ = zapLogger.Sync()
		zapLogger, err = initLogger(cfg.Logging.Level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		logger = wrapZapLogger(zapLogger)
	}
	defer zapLogger.Sync()

	app := initializeApp(cfg, logger)

	// Seed substations from configuration; they stay out of routing
	// until their first successful poll.
	for _, address := range cfg.Substations {
		if _, _, err := app.registry.Upsert(address); err != nil {
			logger.Error("Failed to seed substation", "address", address, "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.poller.Start(ctx)

	watcher, err := config.NewWatcher(loader, logger)
	if err != nil {
		logger.Error("Failed to create config watcher", "error", err)
		os.Exit(1)
	}
	watcher.OnChange(app.applyConfig(ctx, logger))
	if err := watcher.Start(ctx); err != nil {
		logger.Error("Failed to start config watcher", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      app.handler.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting gridbalancer", "addr", cfg.ListenAddr, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		logger.Error("Server error", "error", err)
	}

	logger.Info("Starting graceful shutdown")

	if err := watcher.Stop(); err != nil {
		logger.Error("Config watcher shutdown error", "error", err)
	}
	app.stopPoller()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Shutdown completed successfully")
}

type application struct {
	registry types.Registry
	handler  *api.Handler

	collector *metrics.Collector
	breaker   types.CircuitBreaker

	// mu guards the poller swap on live reload
	mu        sync.Mutex
	poller    *poller.Poller
	pollerCfg types.PollerConfig
}

func initializeApp(cfg *types.Config, logger types.Logger) *application {
	collector := metrics.NewCollector()
	reg := registry.New(logger.With("component", "registry"))

	var breaker types.CircuitBreaker = circuit.NopBreaker{}
	if cfg.CircuitBreaker.Enabled {
		breaker = circuit.NewBreakerRegistry(
			cfg.CircuitBreaker.FailureThreshold,
			cfg.CircuitBreaker.Timeout,
			logger.With("component", "circuit"),
		)
	}

	p := poller.New(
		reg,
		poller.NewHTTPProber(cfg.Poller.Timeout),
		collector,
		logger.With("component", "poller"),
		poller.Options{
			Interval:       cfg.Poller.Interval,
			Timeout:        cfg.Poller.Timeout,
			EvictThreshold: cfg.Poller.EvictThreshold,
			OnEvict:        breaker.Forget,
		},
	)

	rt := router.New(
		reg,
		balancer.NewLeastLoad(),
		router.NewHTTPForwarder(cfg.Forward.Timeout, cfg.Forward.ChargePath),
		breaker,
		collector,
		logger.With("component", "router"),
	)

	handler := api.New(reg, rt, collector, breaker, cfg, logger.With("component", "api"))

	return &application{
		registry:  reg,
		poller:    p,
		handler:   handler,
		collector: collector,
		breaker:   breaker,
		pollerCfg: cfg.Poller,
	}
}

// applyConfig returns the config-reload callback. Only poller tuning is
// applied live; server, breaker and rate-limit settings need a restart.
// The shared startup Config is never mutated, so handlers serving requests
// concurrently with a reload read stable values.
func (app *application) applyConfig(ctx context.Context, logger types.Logger) func(*types.Config) {
	return func(newCfg *types.Config) {
		app.mu.Lock()
		defer app.mu.Unlock()

		if newCfg.Poller == app.pollerCfg {
			return
		}

		logger.Info("Applying new poller configuration",
			"interval", newCfg.Poller.Interval,
			"timeout", newCfg.Poller.Timeout,
			"evict_threshold", newCfg.Poller.EvictThreshold,
		)

		app.poller.Stop()
		app.poller = poller.New(
			app.registry,
			poller.NewHTTPProber(newCfg.Poller.Timeout),
			app.collector,
			logger.With("component", "poller"),
			poller.Options{
				Interval:       newCfg.Poller.Interval,
				Timeout:        newCfg.Poller.Timeout,
				EvictThreshold: newCfg.Poller.EvictThreshold,
				OnEvict:        app.breaker.Forget,
			},
		)
		app.poller.Start(ctx)

		app.pollerCfg = newCfg.Poller
		app.handler.SetPollInterval(newCfg.Poller.Interval)
	}
}

// stopPoller stops the current poller under the reload lock, so shutdown
// never races a reload swapping it out.
func (app *application) stopPoller() {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.poller.Stop()
}

func initLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	parsed, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	config.Level = parsed

	return config.Build()
}

// wrapZapLogger wraps zap.Logger to implement types.Logger
func wrapZapLogger(zapLogger *zap.Logger) types.Logger {
	return &zapLoggerWrapper{zap: zapLogger}
}

type zapLoggerWrapper struct {
	zap *zap.Logger
}

func (z *zapLoggerWrapper) Debug(msg string, fields ...interface{}) {
	z.zap.Debug(msg, z.fieldsToZap(fields)...)
}

func (z *zapLoggerWrapper) Info(msg string, fields ...interface{}) {
	z.zap.Info(msg, z.fieldsToZap(fields)...)
}

func (z *zapLoggerWrapper) Warn(msg string, fields ...interface{}) {
	z.zap.Warn(msg, z.fieldsToZap(fields)...)
}

func (z *zapLoggerWrapper) Error(msg string, fields ...interface{}) {
	z.zap.Error(msg, z.fieldsToZap(fields)...)
}

func (z *zapLoggerWrapper) With(fields ...interface{}) types.Logger {
	return &zapLoggerWrapper{zap: z.zap.With(z.fieldsToZap(fields)...)}
}

func (z *zapLoggerWrapper) fieldsToZap(fields []interface{}) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		zapFields = append(zapFields, zap.Any(key, fields[i+1]))
	}
	return zapFields
}
