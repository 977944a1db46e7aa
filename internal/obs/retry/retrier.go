package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Backoff interface {
	Next(attempt int) time.Duration
}

type ExpoJitter struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

func (b ExpoJitter) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(b.Base) * math.Pow(2, float64(attempt))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*b.Jitter
	}
	return time.Duration(d)
}

// Policy describes how Do retries one named target (a store connect, a ping).
type Policy struct {
	Name      string
	Attempts  int
	Backoff   Backoff
	Retryable func(error) bool
	OnAttempt func(attempt int, err error)
	OnExhaust func(lastErr error)
}

var (
	retryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Calls made inside retry.Do, first try included.",
	}, []string{"target"})
	retryExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_exhausted_total",
		Help: "Targets that failed after their last allowed attempt.",
	}, []string{"target"})
	retryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "retry_duration_seconds",
		Help:    "Time spent inside retry.Do until success or giving up.",
		Buckets: prometheus.DefBuckets,
	}, []string{"target"})
)

func (p Policy) normalized() Policy {
	if p.Name == "" {
		p.Name = "default"
	}
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Retryable == nil {
		p.Retryable = func(err error) bool { return err != nil }
	}
	if p.Backoff == nil {
		p.Backoff = ExpoJitter{Base: 100 * time.Millisecond, Max: 2 * time.Second}
	}
	return p
}

// Do calls fn until it succeeds, the error is not retryable, attempts run out
// or ctx is done. Each failed attempt is recorded as a span event.
func Do(ctx context.Context, fn func() error, p Policy) error {
	p = p.normalized()
	start := time.Now()
	span := trace.SpanFromContext(ctx)
	defer func() {
		retryLatency.WithLabelValues(p.Name).Observe(time.Since(start).Seconds())
	}()

	var err error
	for i := 0; i < p.Attempts; i++ {
		err = fn()
		retryAttempts.WithLabelValues(p.Name).Inc()
		if err == nil {
			return nil
		}

		if p.OnAttempt != nil {
			p.OnAttempt(i, err)
		}
		span.AddEvent("retry.attempt", trace.WithAttributes(
			attribute.String("retry.target", p.Name),
			attribute.Int("retry.attempt", i+1),
			attribute.String("error", err.Error()),
		))

		if !p.Retryable(err) || i == p.Attempts-1 {
			break
		}

		t := time.NewTimer(p.Backoff.Next(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	retryExhausted.WithLabelValues(p.Name).Inc()
	span.SetStatus(codes.Error, p.Name+": retries exhausted")
	if p.OnExhaust != nil {
		p.OnExhaust(err)
	}
	return err
}
