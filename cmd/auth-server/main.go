package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/studybuddy/internal/config/auth-server"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/auth-server.yaml", "path to the yaml config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting auth-server",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("denylist", cfg.Denylist.Enable),
	)

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	store, err := initStore(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("store connect", zap.Error(err))
	}
	defer store.Close()

	denylist, err := initDenylist(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("denylist connect", zap.Error(err))
	}
	defer denylist.Close()

	httpSrv, err := buildHTTPServer(cfg, logger, store, denylist)
	if err != nil {
		logger.Fatal("build http", zap.Error(err))
	}

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, cfg, logger) }()

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		metricsSrv = bootstrapMetrics(cfg, logger, store, denylist)
	}

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case runErr := <-httpErrCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shCtx)
	}

	time.Sleep(100 * time.Millisecond)
	logger.Info("bye")
}
