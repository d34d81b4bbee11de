package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// ResilientProvider wraps an LLM provider with resilience patterns from
// fortify. Temporary provider failures (rate limits, timeouts, quota
// exhaustion, upstream 5xx) are retried with exponential backoff; any
// other error aborts immediately.
type ResilientProvider struct {
	provider       Provider
	circuitBreaker circuitbreaker.CircuitBreaker[*Response]
	retrier        retry.Retry[*Response]
	rateLimit      ratelimit.RateLimiter
	logger         *slog.Logger
	name           string
}

// ResilientConfig holds configuration for the resilient provider wrapper
type ResilientConfig struct {
	// MaxAttempts is the total number of attempts including the first
	// (default: 3)
	MaxAttempts int

	// InitialDelay is the backoff delay before the first retry
	// (default: 2s)
	InitialDelay time.Duration

	// RatePerSecond limits outgoing requests to the provider (default: 2)
	RatePerSecond int

	// DisableCircuitBreaker turns off the circuit breaker
	DisableCircuitBreaker bool

	// Logger for resilience events
	Logger *slog.Logger
}

// NewResilientProvider wraps a provider with retry, circuit breaking and
// rate limiting
func NewResilientProvider(provider Provider, cfg ResilientConfig) *ResilientProvider {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 2 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}

	rp := &ResilientProvider{
		provider: provider,
		logger:   cfg.Logger,
		name:     provider.Name(),
	}

	rp.retrier = retry.New[*Response](retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      60 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   IsTemporary,
	})

	if !cfg.DisableCircuitBreaker {
		rp.circuitBreaker = circuitbreaker.New[*Response](circuitbreaker.Config{
			MaxRequests: 2,
			Interval:    10 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				if rp.logger != nil {
					rp.logger.Warn("circuit breaker state change",
						"provider", rp.name,
						"from", from.String(),
						"to", to.String())
				}
			},
		})
	}

	rp.rateLimit = ratelimit.New(&ratelimit.Config{
		Rate:     cfg.RatePerSecond,
		Burst:    cfg.RatePerSecond * 3,
		Interval: time.Second,
	})

	return rp
}

func (p *ResilientProvider) Name() string {
	return p.provider.Name()
}

func (p *ResilientProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if p.rateLimit != nil {
		if !p.rateLimit.Allow(ctx, p.name) {
			return nil, fmt.Errorf("rate limit exceeded for provider %s", p.name)
		}
	}

	operation := func(ctx context.Context) (*Response, error) {
		return p.provider.Generate(ctx, req)
	}

	if p.circuitBreaker != nil {
		return p.circuitBreaker.Execute(ctx, func(ctx context.Context) (*Response, error) {
			return p.retrier.Do(ctx, operation)
		})
	}

	return p.retrier.Do(ctx, operation)
}

// Close releases resources held by the resilient provider
func (p *ResilientProvider) Close() error {
	if p.rateLimit != nil {
		return p.rateLimit.Close()
	}
	return nil
}

// temporarySubstrings are the error-text markers treated as retryable.
// Provider errors embed the upstream HTTP status, so status codes are
// matched as substrings alongside the provider-specific quota and
// timeout phrasings.
var temporarySubstrings = []string{
	"429",
	"timeout",
	"deadline exceeded",
	"quota",
	"rate limit",
	"status 500",
	"status 502",
	"status 503",
	"status 504",
	"overloaded",
}

// IsTemporary reports whether an error should be retried
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, sub := range temporarySubstrings {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
