package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harvest_rate_limit_remaining",
		Help: "Requests remaining in the current Harvest rate limit window",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvest_rate_limit_wait_seconds",
		Help:    "Time spent waiting for the client-side request pacer",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)

// Tracker paces outgoing requests and records the quota reported by Harvest.
// It is safe for concurrent use.
type Tracker struct {
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu    sync.RWMutex
	state State
}

// NewTracker creates a tracker. When requestsPerSecond is zero or negative
// requests are not paced and only quota headers are tracked.
func NewTracker(requestsPerSecond float64, burst int, logger zerolog.Logger) *Tracker {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return &Tracker{
		limiter: limiter,
		logger:  logger,
		state:   State{Remaining: -1},
	}
}

// Wait blocks until the pacer admits one request or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	rateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// State returns a copy of the last observed quota state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// UpdateFromHeaders records quota headers from a response. Responses without
// quota headers leave the state untouched.
func (t *Tracker) UpdateFromHeaders(headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	retryStr := headers.Get(HeaderRetryAfter)
	if remainStr == "" && retryStr == "" {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.state
	next.LastUpdate = time.Now()

	if remainStr != "" {
		remain, err := parseIntHeader(remainStr)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
		}
		next.Remaining = remain
		rateLimitRemaining.Set(float64(remain))
	}

	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		limit, err := parseIntHeader(limitStr)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
		next.Limit = limit
	}

	next.RetryAfter = parseRetryAfter(retryStr, next.LastUpdate)
	t.state = next

	if next.IsLow() {
		t.logger.Warn().
			Int("remaining", next.Remaining).
			Int("limit", next.Limit).
			Msg("Harvest rate limit quota low")
	} else {
		t.logger.Debug().
			Int("remaining", next.Remaining).
			Int("limit", next.Limit).
			Msg("Harvest rate limit state updated")
	}

	return nil
}

func parseIntHeader(value string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(value))
}

// parseRetryAfter accepts either delay-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := when.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
