package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var errBoom = errors.New("boom")

func fastPolicy(attempts int) Policy {
	return Policy{
		Name:     "test",
		Attempts: attempts,
		Backoff:  ExpoJitter{Base: time.Millisecond, Max: 2 * time.Millisecond},
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	}, fastPolicy(5))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_Exhausts(t *testing.T) {
	var exhausted error
	p := fastPolicy(2)
	p.OnExhaust = func(err error) { exhausted = err }

	calls := 0
	err := Do(context.Background(), func() error { calls++; return errBoom }, p)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, exhausted, errBoom)
}

func TestDo_NotRetryable(t *testing.T) {
	p := fastPolicy(5)
	p.Retryable = func(error) bool { return false }

	calls := 0
	err := Do(context.Background(), func() error { calls++; return errBoom }, p)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 3, Backoff: ExpoJitter{Base: time.Hour}}

	err := Do(ctx, func() error { cancel(); return errBoom }, p)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExpoJitter_Caps(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(10))
}

func TestStartupPolicy_SkipsCanceled(t *testing.T) {
	p := StartupPolicy("db", nil)
	assert.False(t, p.Retryable(context.Canceled))
	assert.True(t, p.Retryable(errBoom))
}

func TestDo_RecordsAttemptsOnSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	ctx, span := tp.Tracer("test").Start(context.Background(), "connect")

	p := fastPolicy(2)
	p.Name = "mongo"
	err := Do(ctx, func() error { return errBoom }, p)
	require.ErrorIs(t, err, errBoom)
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	events := ended[0].Events()
	require.Len(t, events, 2)
	for i, ev := range events {
		assert.Equal(t, "retry.attempt", ev.Name)
		assert.Contains(t, ev.Attributes, attribute.String("retry.target", "mongo"))
		assert.Contains(t, ev.Attributes, attribute.Int("retry.attempt", i+1))
		assert.Contains(t, ev.Attributes, attribute.String("error", "boom"))
	}
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestDo_NilBackoffUsesDefault(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errBoom
		}
		return nil
	}, Policy{Attempts: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
