package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// StartupPolicy retries connecting to a backing store while the process boots.
// Request handling never retries.
func StartupPolicy(name string, log *zap.Logger) Policy {
	return Policy{
		Name:     name,
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("connect retry", zap.String("target", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("connect retries exhausted", zap.String("target", name), zap.Error(err))
			}
		},
	}
}
