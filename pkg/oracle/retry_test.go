package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesis-kb/noesis/pkg/types"
)

// scriptedClient fails a fixed number of times before succeeding.
type scriptedClient struct {
	failures int
	err      error
	calls    int
}

func (s *scriptedClient) Judge(ctx context.Context, a, b *types.AtomicUnit) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", s.err
	}
	return `{"isRelated": true, "relationshipType": "related", "strength": 0.8, "explanation": "ok"}`, nil
}

func (s *scriptedClient) Close() error { return nil }

func fastRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:        maxRetries,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryClientRecoversFromTransientErrors(t *testing.T) {
	inner := &scriptedClient{failures: 2, err: errors.New("rate limit exceeded (429)")}
	client := NewRetryClient(inner, fastRetryConfig(3))

	resp, err := client.Judge(context.Background(), &types.AtomicUnit{ID: "a"}, &types.AtomicUnit{ID: "b"})
	require.NoError(t, err)
	assert.Contains(t, resp, "isRelated")
	assert.Equal(t, 3, inner.calls)
}

func TestRetryClientGivesUpAfterMaxRetries(t *testing.T) {
	inner := &scriptedClient{failures: 10, err: errors.New("503 service unavailable")}
	client := NewRetryClient(inner, fastRetryConfig(2))

	_, err := client.Judge(context.Background(), &types.AtomicUnit{ID: "a"}, &types.AtomicUnit{ID: "b"})
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryClientDoesNotRetryPermanentErrors(t *testing.T) {
	inner := &scriptedClient{failures: 10, err: errors.New("invalid api key")}
	client := NewRetryClient(inner, fastRetryConfig(3))

	_, err := client.Judge(context.Background(), &types.AtomicUnit{ID: "a"}, &types.AtomicUnit{ID: "b"})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestBreakerClientTripsAfterRepeatedFailures(t *testing.T) {
	inner := &scriptedClient{failures: 100, err: errors.New("connection refused")}
	cfg := DefaultBreakerConfig()
	client := NewBreakerClient(inner, cfg, "test-oracle")

	ctx := context.Background()
	a, b := &types.AtomicUnit{ID: "a"}, &types.AtomicUnit{ID: "b"}
	for i := 0; i < 5; i++ {
		_, _ = client.Judge(ctx, a, b)
	}

	calls := inner.calls
	_, err := client.Judge(ctx, a, b)
	require.Error(t, err)
	assert.Equal(t, calls, inner.calls, "open breaker must not reach the inner client")
}
