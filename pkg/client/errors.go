package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrMissingAPIKey is returned by New when no API key is configured.
	ErrMissingAPIKey = errors.New("harvest api key is required")

	// ErrEmptyPath is returned by Request when the target path is empty.
	ErrEmptyPath = errors.New("request path is required")

	// ErrRateLimited matches any HarvestError with status 429 via errors.Is.
	ErrRateLimited = errors.New("harvest rate limit reached")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport failures without a response.
	ErrorClassNetwork ErrorClass = "network"
)

// ConfigError is returned before any network call when the client or a
// request is misconfigured. It is never retried.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("harvest config error (%s): %v", e.Field, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// HarvestError is returned for any non-2xx response.
type HarvestError struct {
	StatusCode int
	Class      ErrorClass

	// Body is the decoded JSON value when the response declared
	// application/json, otherwise the raw text.
	Body any
}

// Error implements the error interface.
func (e *HarvestError) Error() string {
	return fmt.Sprintf("Harvest API %d", e.StatusCode)
}

// Is reports whether target is ErrRateLimited and this is a 429.
func (e *HarvestError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimit reports whether err is (or wraps) a 429 HarvestError.
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// StatusCode extracts the HTTP status from err, or 0 if err is not a HarvestError.
func StatusCode(err error) int {
	var herr *HarvestError
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}

// classifyStatus maps an HTTP status code to an ErrorClass.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
