package main

import (
	"context"
	"net/http"
	"time"

	tokens "github.com/NordCoder/studybuddy/internal/auth"
	config "github.com/NordCoder/studybuddy/internal/config/auth-server"
	"github.com/NordCoder/studybuddy/internal/obs"
	"github.com/NordCoder/studybuddy/internal/services/auth-server/auth"
	"go.uber.org/zap"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, store *storeHandle, denylist *denylistHandle) (*http.Server, error) {
	tk, err := tokens.NewTokens(tokens.TokenConfig{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}

	uc := auth.NewUseCase(store.Users, tk, tokens.NewHasher(cfg.Auth.BcryptCost), auth.Config{
		Denylist: denylist.List,
		Logger:   logger,
	})
	api := auth.NewServer(uc, auth.Opts{
		Logger:       logger,
		BasePath:     cfg.Server.BasePath,
		AllowOrigins: cfg.Server.AllowOrigins,
	})

	root := http.NewServeMux()
	root.Handle("/", obs.HTTPHandler(api.Handler(), "auth-server"))
	if cfg.Server.MetricsAddr == "" {
		root.Handle("/metrics", obs.MetricsHandler())
		root.Handle("/healthz", obs.HealthHandler(store.Ping, denylist.Ping))
	}

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           root,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}, nil
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr), zap.String("base_path", cfg.Server.BasePath))
	return srv.ListenAndServe()
}

func bootstrapMetrics(cfg *config.Config, logger *zap.Logger, store *storeHandle, denylist *denylistHandle) *http.Server {
	return obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return err
		}
		return denylist.Ping(ctx)
	}, logger)
}
