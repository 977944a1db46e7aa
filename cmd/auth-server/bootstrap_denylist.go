package main

import (
	"context"

	config "github.com/NordCoder/studybuddy/internal/config/auth-server"
	domainauth "github.com/NordCoder/studybuddy/internal/domain/auth"
	"github.com/NordCoder/studybuddy/internal/obs/retry"
	rd "github.com/NordCoder/studybuddy/internal/repository/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type denylistHandle struct {
	// nil when revocation is disabled
	List  domainauth.Denylist
	Ping  func(context.Context) error
	Close func()
}

func initDenylist(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*denylistHandle, error) {
	if !cfg.Denylist.Enable {
		logger.Info("token denylist disabled; tokens stay valid until they expire")
		return &denylistHandle{Ping: func(context.Context) error { return nil }, Close: func() {}}, nil
	}

	var client *goredis.Client
	err := retry.Do(ctx, func() (err error) {
		client, err = rd.NewClient(ctx, cfg.Redis)
		return err
	}, retry.StartupPolicy("redis", logger))
	if err != nil {
		return nil, err
	}

	list := rd.NewDenylist(client, cfg.Redis.QueryTimeout)
	return &denylistHandle{
		List:  list,
		Ping:  list.Ping,
		Close: func() { _ = client.Close() },
	}, nil
}
