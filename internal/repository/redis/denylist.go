package redis

import (
	"context"
	"fmt"
	"time"

	domainauth "github.com/NordCoder/studybuddy/internal/domain/auth"
	"github.com/redis/go-redis/v9"
)

var _ domainauth.Denylist = (*Denylist)(nil)

const keyPrefix = "studybuddy:revoked:"

type Config struct {
	URL          string        `mapstructure:"url"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	hctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(hctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Denylist stores one key per revoked jti, expiring with the token.
type Denylist struct {
	client  *redis.Client
	timeout time.Duration
	now     func() time.Time
}

func NewDenylist(client *redis.Client, timeout time.Duration) *Denylist {
	return &Denylist{client: client, timeout: timeout, now: time.Now}
}

func (d *Denylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	if err := d.client.Set(ctx, keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", jti, err)
	}
	return nil
}

func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	n, err := d.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", jti, err)
	}
	return n > 0, nil
}

func (d *Denylist) Ping(ctx context.Context) error { return d.client.Ping(ctx).Err() }

func (d *Denylist) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.timeout)
}
