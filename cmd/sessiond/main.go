// Command sessiond serves login, refresh, logout and guarded endpoints backed by Redis.
//
//	sessiond -config /etc/gosession/sessiond.yaml
//
// Every setting can be overridden with GOSESSION_* environment variables, e.g.
// GOSESSION_JWT_SECRET and GOSESSION_REDIS_ADDRS.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/httpapi"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/logging"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "sessiond: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.New(settings.Logging)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	defer func() { _ = logger.Sync() }()

	engineCfg, err := settings.EngineConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	directory, err := settings.Directory()
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if directory.Len() == 0 {
		logger.Warn("no users configured; every login will fail")
	}

	rdb := redis.NewUniversalClient(settings.RedisOptions())
	defer rdb.Close()

	builder := goSession.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithCredentialVerifier(directory).
		WithAuditSink(goSession.NewZapAuditSink(logger)).
		WithLogger(logger)
	if retry, ok := settings.RetryConfig(); ok {
		builder = builder.WithStoreRetry(retry)
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if latency, err := engine.Ping(startupCtx); err != nil {
		logger.Warn("token store not reachable at startup", zap.Error(err))
	} else {
		logger.Info("token store reachable", zap.Duration("latency", latency))
	}
	cancel()

	opts := httpapi.Options{
		Logger:         logger,
		AllowedOrigins: settings.HTTP.AllowedOrigins,
	}
	if settings.Metrics.Prometheus && engineCfg.Metrics.Enabled {
		metricsHandler, err := promexport.Handler(engine)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		opts.MetricsHandler = metricsHandler
	}

	srv := &http.Server{
		Addr:         settings.HTTP.Addr,
		Handler:      httpapi.NewRouter(engine, opts),
		ReadTimeout:  settings.HTTP.ReadTimeout,
		WriteTimeout: settings.HTTP.WriteTimeout,
		IdleTimeout:  settings.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped", zap.Uint64("audit_dropped", engine.AuditDropped()))
	return nil
}
