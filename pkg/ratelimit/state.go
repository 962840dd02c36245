// Package ratelimit tracks the Harvest API request quota and paces outgoing
// requests. Harvest reports the quota through the X-RateLimit-Limit and
// X-RateLimit-Remaining headers and signals exhaustion with 429 plus an
// optional Retry-After header.
package ratelimit

import (
	"time"
)

// Response headers carrying quota information.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderRetryAfter = "Retry-After"
)

// LowQuotaRatio is the fraction of the window's limit below which the tracker
// reports the quota as low.
const LowQuotaRatio = 0.1

// State is the last quota snapshot observed from Harvest responses.
type State struct {
	// Limit is the number of requests allowed per window. Zero if unknown.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	// Negative if unknown.
	Remaining int `json:"remaining"`

	// RetryAfter is the server's requested wait from the last 429, if any.
	RetryAfter time.Duration `json:"retry_after"`

	// LastUpdate is when the state was last refreshed from headers.
	LastUpdate time.Time `json:"last_update"`
}

// Known reports whether any quota headers have been observed.
func (s State) Known() bool {
	return s.Remaining >= 0
}

// IsLow reports whether the remaining quota has dropped below LowQuotaRatio
// of the limit. Unknown quota is never low.
func (s State) IsLow() bool {
	if !s.Known() || s.Limit <= 0 {
		return false
	}
	return float64(s.Remaining) < float64(s.Limit)*LowQuotaRatio
}

// IsStale returns true if the state is older than maxAge.
func (s State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
