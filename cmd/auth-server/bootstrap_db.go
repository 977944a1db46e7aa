package main

import (
	"context"
	"fmt"

	config "github.com/NordCoder/studybuddy/internal/config/auth-server"
	"github.com/NordCoder/studybuddy/internal/domain/user"
	"github.com/NordCoder/studybuddy/internal/obs/retry"
	"github.com/NordCoder/studybuddy/internal/repository/memory"
	mg "github.com/NordCoder/studybuddy/internal/repository/mongo"
	pg "github.com/NordCoder/studybuddy/internal/repository/postgres"
	"go.uber.org/zap"
)

type storeHandle struct {
	Users user.Repo
	Ping  func(context.Context) error
	Close func()
}

func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storeHandle, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		return initMongo(ctx, cfg, logger)
	case config.StorePostgres:
		return initPostgres(ctx, cfg, logger)
	case config.StoreMemory:
		logger.Warn("using in-memory credential store; users are lost on restart")
		repo := memory.NewUserRepo()
		return &storeHandle{Users: repo, Ping: repo.Ping, Close: func() {}}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func initMongo(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storeHandle, error) {
	var db *mg.DB
	err := retry.Do(ctx, func() (err error) {
		db, err = mg.NewDB(ctx, cfg.Mongo)
		return err
	}, retry.StartupPolicy("mongo", logger))
	if err != nil {
		return nil, err
	}

	repo := mg.NewUserRepo(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = db.Close(context.Background())
		return nil, err
	}
	return &storeHandle{
		Users: repo,
		Ping:  db.Ping,
		Close: func() { _ = db.Close(context.Background()) },
	}, nil
}

func initPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storeHandle, error) {
	var db *pg.DB
	err := retry.Do(ctx, func() (err error) {
		db, err = pg.NewDB(ctx, cfg.DB)
		return err
	}, retry.StartupPolicy("postgres", logger))
	if err != nil {
		return nil, err
	}

	if cfg.Store.AutoMigrate {
		if err := pg.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("migrations applied")
	}
	return &storeHandle{Users: pg.NewUserRepo(db), Ping: db.Ping, Close: db.Close}, nil
}
