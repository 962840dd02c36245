package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	harvestRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_retries_total",
		Help: "Total number of rate-limit retry attempts",
	})

	harvestRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvest_retry_backoff_seconds",
		Help:    "Backoff duration before rate-limit retries",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
	})

	harvestRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_retry_exhausted_total",
		Help: "Total number of calls that exhausted their rate-limit retries",
	})
)

// RetryConfig holds the configuration for rate-limit retries.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseDelay is the wait before the first retry. The wait before retry n
	// (0-based) is BaseDelay * 2^n.
	BaseDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration:
// 3 retries waiting 1s, 2s, 4s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
	}
}

// Backoff returns the wait before retry attempt (0-based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	return c.BaseDelay << attempt
}

type retryState int

const (
	stateAttempting retryState = iota
	stateWaiting
	stateSucceeded
	stateFailed
)

// Retrier retries calls that fail with a 429 HarvestError.
type Retrier struct {
	config RetryConfig
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrier. Negative MaxRetries is treated as zero.
func NewRetrier(config RetryConfig) *Retrier {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Retrier{
		config: config,
		logger: log.With().Str("component", "retry").Logger(),
		sleep:  sleepContext,
	}
}

// Config returns the retrier's configuration.
func (r *Retrier) Config() RetryConfig {
	return r.config
}

// Retry runs fn until it succeeds, fails with anything other than a rate
// limit, or the retry ceiling is reached. The last failure is returned
// unchanged. label identifies the call in logs.
func Retry[T any](ctx context.Context, r *Retrier, label string, fn func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		err     error
		attempt int
	)

	state := stateAttempting
	for state != stateSucceeded && state != stateFailed {
		switch state {
		case stateAttempting:
			result, err = fn(ctx)
			switch {
			case err == nil:
				state = stateSucceeded
			case IsRateLimit(err) && attempt < r.config.MaxRetries:
				state = stateWaiting
			default:
				state = stateFailed
			}

		case stateWaiting:
			delay := r.config.Backoff(attempt)
			harvestRetriesTotal.Inc()
			harvestRetryBackoffSeconds.Observe(delay.Seconds())

			r.logger.Warn().
				Str("label", label).
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Msg("Rate limit hit, retrying after backoff")

			if werr := r.sleep(ctx, delay); werr != nil {
				err = werr
				state = stateFailed
				continue
			}
			attempt++
			state = stateAttempting
		}
	}

	if err != nil {
		if IsRateLimit(err) {
			harvestRetryExhaustedTotal.Inc()
			r.logger.Error().
				Str("label", label).
				Int("max_retries", r.config.MaxRetries).
				Msg("Rate limit retries exhausted")
		}
		var zero T
		return zero, err
	}

	if attempt > 0 {
		r.logger.Info().
			Str("label", label).
			Int("attempts", attempt+1).
			Msg("Request succeeded after retry")
	}
	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry backoff: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
