package tmdb

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"movie-discovery/internal/metrics"
)

// Middleware wraps a Doer with a cross-cutting stage.
type Middleware func(Doer) Doer

// Chain wraps base with mws. The first middleware is the outermost.
func Chain(base Doer, mws ...Middleware) Doer {
	d := base
	for i := len(mws) - 1; i >= 0; i-- {
		d = mws[i](d)
	}
	return d
}

// WithMetrics records request counts and latency per endpoint.
func WithMetrics() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, req Request, out any) error {
			start := time.Now()
			err := next.Do(ctx, req, out)
			metrics.UpstreamDuration.WithLabelValues(req.Endpoint).Observe(time.Since(start).Seconds())

			outcome := "ok"
			if err != nil {
				outcome = string(asError(req.Endpoint, KindTransport, err).Kind)
			}
			metrics.UpstreamRequests.WithLabelValues(req.Endpoint, outcome).Inc()
			return err
		})
	}
}

// WithRateLimit blocks each attempt until the limiter grants a token.
func WithRateLimit(limiter *rate.Limiter) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, req Request, out any) error {
			if err := limiter.Wait(ctx); err != nil {
				return &Error{Kind: KindTimeout, Endpoint: req.Endpoint, Err: err}
			}
			return next.Do(ctx, req, out)
		})
	}
}

// RetryPolicy configures WithRetry.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy retries three times starting at one second, doubling each time.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialInterval: time.Second, Multiplier: 2}
}

// WithRetry retries retryable failures with exponential backoff. Non-retryable
// errors (4xx, decode) are returned immediately. The context bounds the total time.
func WithRetry(policy RetryPolicy) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, req Request, out any) error {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = policy.InitialInterval
			b.Multiplier = policy.Multiplier
			b.RandomizationFactor = 0.1
			b.MaxElapsedTime = 0

			attempt := 0
			op := func() error {
				attempt++
				if attempt > 1 {
					metrics.UpstreamRetries.WithLabelValues(req.Endpoint).Inc()
				}
				err := next.Do(ctx, req, out)
				if err == nil {
					return nil
				}
				var e *Error
				if errors.As(err, &e) && !e.Retryable() {
					return backoff.Permanent(err)
				}
				slog.Warn("TMDB request failed, retrying",
					"endpoint", req.Endpoint, "attempt", attempt, "error", err)
				return err
			}

			err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, policy.MaxRetries), ctx))
			if err != nil {
				return asError(req.Endpoint, KindTimeout, err)
			}
			return nil
		})
	}
}

// BreakerSettings configures WithCircuitBreaker.
type BreakerSettings struct {
	Name string
	// MinRequests is the number of calls in a window before the ratio is considered.
	MinRequests  uint32
	FailureRatio float64
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	Interval    time.Duration
}

// DefaultBreakerSettings opens after 60% failures across at least 10 calls.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "tmdb-api",
		MinRequests:  10,
		FailureRatio: 0.6,
		OpenTimeout:  30 * time.Second,
		Interval:     time.Minute,
	}
}

// WithCircuitBreaker fails fast while TMDB is unhealthy. Client-side errors
// such as 404 do not count against the breaker.
func WithCircuitBreaker(s BreakerSettings) Middleware {
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 3,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var e *Error
			if errors.As(err, &e) {
				return !e.upstreamFault()
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("TMDB circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, req Request, out any) error {
			_, err := cb.Execute(func() (struct{}, error) {
				return struct{}{}, next.Do(ctx, req, out)
			})
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return &Error{Kind: KindCircuitOpen, Endpoint: req.Endpoint, Err: err}
			}
			return err
		})
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
