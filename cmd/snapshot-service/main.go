package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/common/config"
	logutil "github.com/telewebsaver/engine/internal/common/logger"
	"github.com/telewebsaver/engine/internal/common/metricsserver"
	"github.com/telewebsaver/engine/internal/common/redis"
	"github.com/telewebsaver/engine/internal/gateway"
	"github.com/telewebsaver/engine/internal/render/chrome"
	"github.com/telewebsaver/engine/internal/render/metrics"
	"github.com/telewebsaver/engine/internal/render/snapshot"
	"github.com/telewebsaver/engine/internal/search"
)

func main() {
	configPath := flag.String("c", "configs/snapshot-service.yaml",
		"Path to snapshot service configuration file")
	flag.Parse()

	// Initialize logger (will be reconfigured from config)
	initialLogger, err := logutil.NewDefaultLogger()
	if err != nil {
		panic(err)
	}

	initialLogger.Info("Loading configuration", zap.String("path", *configPath))

	absPath, err := config.GetConfigPath(*configPath)
	if err != nil {
		initialLogger.Fatal("Invalid config path", zap.Error(err))
	}

	cfg, err := config.LoadServiceConfig(absPath)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Uses INFO level during startup if configured level is higher
	dynamicLogger, err := logutil.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}

	logger := dynamicLogger.Logger

	logger.Info("Snapshot service starting",
		zap.String("id", cfg.Server.ID),
		zap.String("listen", cfg.Server.Listen),
		zap.String("pool_size", cfg.Chrome.PoolSize))

	// Result ids live in Redis when configured so they survive restarts
	var store search.ResultStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		store = search.NewRedisStore(redisClient, cfg.Search.ResultTTL.ToDuration())
	} else {
		logger.Info("Redis not configured, keeping search results in memory")
		store = search.NewMemoryStore(cfg.Search.ResultTTL.ToDuration())
	}

	metricsCollector := metrics.NewMetricsCollector(cfg.Metrics.Namespace, logger)

	metricsServer, err := metricsserver.StartMetricsServer(cfg.Metrics, metricsCollector, logger)
	if err != nil {
		logger.Fatal("Failed to start metrics server", zap.Error(err))
	}

	chromeConfig := newChromeConfig(cfg.Chrome)
	if err := chromeConfig.Validate(); err != nil {
		logger.Fatal("Invalid Chrome configuration", zap.Error(err))
	}

	resolveCtx, resolveCancel := context.WithTimeout(context.Background(), 10*time.Minute)
	execPath, err := chrome.ResolveExecPath(resolveCtx, chromeConfig, logger)
	resolveCancel()
	if err != nil {
		logger.Fatal("Failed to locate browser", zap.Error(err))
	}

	pool, err := chrome.NewPool(chrome.NewEngine(execPath, chromeConfig, logger), chromeConfig, metricsCollector, logger)
	if err != nil {
		logger.Fatal("Failed to create render pool", zap.Error(err))
	}

	renderer, err := snapshot.NewRenderer(pool, newSnapshotConfig(cfg.Snapshot), logger,
		snapshot.WithRecorder(metricsCollector))
	if err != nil {
		logger.Fatal("Invalid snapshot configuration", zap.Error(err))
	}

	searcher := search.NewService(search.NewClient(&cfg.Search, logger), store, cfg.Search.MaxResults, logger)

	gw := gateway.NewServer(renderer, searcher, pool, metricsCollector, gateway.Options{
		MaxTimeout:     cfg.Server.MaxTimeout.ToDuration(),
		SSRFProtection: cfg.Security.SSRFProtectionEnabled(),
	}, logger)

	serverTimeout := cfg.Server.CalculateServerTimeout()

	server := &fasthttp.Server{
		Handler:      gw.Handler(),
		ReadTimeout:  serverTimeout,
		WriteTimeout: serverTimeout,
		IdleTimeout:  serverTimeout,
		Name:         "SnapshotService/" + cfg.Server.ID,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("listen", cfg.Server.Listen))
		if err := server.ListenAndServe(cfg.Server.Listen); err != nil {
			serverErrCh <- err
		}
	}()

	// Wait briefly for HTTP server to start listening
	time.Sleep(100 * time.Millisecond)

	select {
	case err := <-serverErrCh:
		logger.Fatal("HTTP server failed to start", zap.Error(err))
	default:
	}

	logger.Info("Snapshot service ready",
		zap.String("id", cfg.Server.ID),
		zap.String("listen", cfg.Server.Listen),
		zap.String("browser", execPath),
		zap.Int("pool_size", pool.PoolSize()))

	dynamicLogger.SwitchToConfiguredLevel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		logger.Error("Server error", zap.Error(err))
	}

	dynamicLogger.EnsureInfoLevelForShutdown()
	logger.Info("Shutting down gracefully...")

	if metricsServer != nil {
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsShutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", zap.Error(err))
		} else {
			logger.Info("Metrics server shutdown complete")
		}
		metricsShutdownCancel()
	}

	// Complete in-flight requests; a render in progress is bounded by max_timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverTimeout)
	defer shutdownCancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := pool.Shutdown(); err != nil {
		logger.Error("Render pool shutdown error", zap.Error(err))
	}

	logger.Info("Snapshot service stopped")
}

func newChromeConfig(c config.ChromeConfig) *chrome.Config {
	return &chrome.Config{
		PoolSize:        c.PoolSize,
		ExecPath:        c.ExecPath,
		AutoDownload:    c.AutoDownload,
		NoSandbox:       c.NoSandbox,
		ShutdownTimeout: c.ShutdownTimeout.ToDuration(),
	}
}

// newSnapshotConfig maps the YAML section; zero values fall back to renderer defaults
func newSnapshotConfig(s config.SnapshotConfig) snapshot.Config {
	return snapshot.Config{
		ViewportWidth:      s.ViewportWidth,
		ViewportHeight:     s.ViewportHeight,
		DeviceScale:        s.DeviceScale,
		MinWidth:           s.MinWidth,
		MaxWidth:           s.MaxWidth,
		MinHeight:          s.MinHeight,
		MaxHeight:          s.MaxHeight,
		NavigationTimeout:  s.NavigationTimeout.ToDuration(),
		ConsentSettle:      s.ConsentSettle.ToDuration(),
		NetworkIdleTimeout: s.NetworkIdleTimeout.ToDuration(),
		FontsTimeout:       s.FontsTimeout.ToDuration(),
		StabilizeSettle:    s.StabilizeSettle.ToDuration(),
		VisibleTimeout:     s.VisibleTimeout.ToDuration(),
		ScriptTimeout:      s.ScriptTimeout.ToDuration(),
	}
}
