package oracle

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/noesis-kb/noesis/pkg/types"
)

// BreakerConfig holds circuit-breaker tuning for the oracle path.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ReadyToTripRatio float64
}

// DefaultBreakerConfig returns conservative defaults: trip after 60% failures
// over at least 3 requests, probe again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		ReadyToTripRatio: 0.6,
	}
}

// BreakerClient wraps an oracle Client with a circuit breaker so a failing
// LLM backend stops consuming the candidate pipeline. A tripped breaker
// returns an error, which the detector degrades to "not related" like any
// other oracle failure.
type BreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps client with a breaker named name.
func NewBreakerClient(client Client, cfg BreakerConfig, name string) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && ratio >= cfg.ReadyToTripRatio
		},
	}
	return &BreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(settings),
	}
}

// Judge implements Client through the breaker.
func (c *BreakerClient) Judge(ctx context.Context, a, b *types.AtomicUnit) (string, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Judge(ctx, a, b)
	})
	if err != nil {
		return "", err
	}
	return resp.(string), nil
}

// Close closes the wrapped client.
func (c *BreakerClient) Close() error { return c.client.Close() }
