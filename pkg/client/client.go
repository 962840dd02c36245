// Package client provides the Harvest HTTP transport: authentication, URL
// building, content negotiation, and failure classification.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/harvest-client/pkg/pagination"
	"github.com/Sternrassler/harvest-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Harvest client operations.
var (
	harvestRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_requests_total",
		Help: "Total Harvest requests by endpoint and status",
	}, []string{"endpoint", "status"})

	harvestRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvest_request_duration_seconds",
		Help:    "Harvest request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	harvestErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_errors_total",
		Help: "Total Harvest errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the Harvest v1 API root.
const DefaultBaseURL = "https://harvest.greenhouse.io/v1"

// Header names sent with every request.
const (
	HeaderAuthorization = "Authorization"
	HeaderOnBehalfOf    = "On-Behalf-Of"
	HeaderLink          = "Link"
)

// Params are query parameters. Nil values are skipped; everything else is
// coerced to its string form.
type Params map[string]any

// Client is the Harvest API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authHeader string
	tracker    *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// APIKey is the Harvest API key (REQUIRED). Sent as the Basic auth
	// username with an empty password.
	APIKey string

	// BaseURL overrides DefaultBaseURL. Whitespace and a trailing slash are trimmed.
	BaseURL string

	// OnBehalfOf is the optional user ID sent in the On-Behalf-Of header.
	OnBehalfOf string

	// Timeout bounds each HTTP request. Zero disables the timeout.
	Timeout time.Duration

	// Pacing, 0 disables client-side pacing
	RequestsPerSecond float64
	Burst             int

	// HTTPClient replaces the default *http.Client. Timeout is ignored when set.
	HTTPClient *http.Client

	// Logger defaults to the global logger tagged component=harvest-client.
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		Timeout: 30 * time.Second,
		Burst:   1,
	}
}

// New creates a new Harvest client. It fails fast with a ConfigError when no
// API key is configured.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigError{Field: "api_key", Err: ErrMissingAPIKey}
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, &ConfigError{Field: "base_url", Err: err}
	}

	logger := log.With().Str("component", "harvest-client").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	token := base64.StdEncoding.EncodeToString([]byte(cfg.APIKey + ":"))

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		authHeader: "Basic " + token,
		tracker:    ratelimit.NewTracker(cfg.RequestsPerSecond, cfg.Burst, logger),
		config:     cfg,
		logger:     logger,
	}, nil
}

// Request describes a single Harvest API call.
type Request struct {
	Method  string
	Path    string
	Params  Params
	Body    any
	Headers map[string]string
}

// Response is a successful (2xx) Harvest response.
type Response struct {
	StatusCode  int
	Header      http.Header
	ContentType string
	Body        []byte
}

// IsJSON reports whether the response declared an application/json body.
func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "application/json")
}

// Decode unmarshals a JSON body into v.
func (r *Response) Decode(v any) error {
	if !r.IsJSON() {
		return fmt.Errorf("decode response: content type %q is not JSON", r.ContentType)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Data returns the parsed JSON value, or the body text for non-JSON responses.
func (r *Response) Data() any {
	return parseBody(r.ContentType, r.Body)
}

// BuildURL joins the base URL with path (a leading slash is added when
// missing) and appends the non-nil params.
func (c *Client) BuildURL(path string, params Params) (string, error) {
	if path == "" {
		return "", &ConfigError{Field: "path", Err: ErrEmptyPath}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	if len(params) > 0 {
		query := u.Query()
		for key, value := range params {
			s, ok := paramString(value)
			if !ok {
				continue
			}
			query.Set(key, s)
		}
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}

// Request performs a single request against the API.
func (c *Client) Request(ctx context.Context, req Request) (*Response, error) {
	rawURL, err := c.BuildURL(req.Path, req.Params)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body []byte
	if req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	return c.do(ctx, method, rawURL, body, req.Headers)
}

// Get performs a GET request for path with params.
func (c *Client) Get(ctx context.Context, path string, params Params) (*Response, error) {
	return c.Request(ctx, Request{Method: http.MethodGet, Path: path, Params: params})
}

// FetchPage implements pagination.PageFetcher. rawURL is absolute: either a
// URL from BuildURL or a rel="next" link returned by Harvest.
func (c *Client) FetchPage(ctx context.Context, rawURL string) (pagination.RawPage, error) {
	resp, err := c.do(ctx, http.MethodGet, rawURL, nil, nil)
	if err != nil {
		return pagination.RawPage{}, err
	}
	return pagination.RawPage{
		Body:        resp.Body,
		ContentType: resp.ContentType,
		Link:        resp.Header.Get(HeaderLink),
	}, nil
}

// do executes one HTTP exchange and classifies non-2xx responses.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, extra map[string]string) (*Response, error) {
	endpoint := endpointLabel(rawURL)

	startTime := time.Now()
	defer func() {
		harvestRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if err := c.tracker.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = c.buildHeaders(body != nil, extra)

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Msg("Executing Harvest request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		harvestErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		harvestRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, fmt.Errorf("harvest %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		harvestErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if err := c.tracker.UpdateFromHeaders(resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	status := strconv.Itoa(resp.StatusCode)
	harvestRequestsTotal.WithLabelValues(endpoint, status).Inc()
	contentType := resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := classifyStatus(resp.StatusCode)
		harvestErrorsTotal.WithLabelValues(string(class)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Harvest request error")

		return nil, &HarvestError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Body:       parseBody(contentType, respBody),
		}
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		ContentType: contentType,
		Body:        respBody,
	}, nil
}

func (c *Client) buildHeaders(hasBody bool, extra map[string]string) http.Header {
	h := http.Header{}
	h.Set(HeaderAuthorization, c.authHeader)
	h.Set("Accept", "application/json")
	if hasBody {
		h.Set("Content-Type", "application/json")
	}
	for key, value := range extra {
		h.Set(key, value)
	}
	if c.config.OnBehalfOf != "" {
		h.Set(HeaderOnBehalfOf, c.config.OnBehalfOf)
	}
	return h
}

// Tracker returns the rate limit tracker fed by every response.
func (c *Client) Tracker() *ratelimit.Tracker {
	return c.tracker
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// parseBody returns the decoded JSON value for JSON bodies, falling back to
// the text when decoding fails or the body is not JSON.
func parseBody(contentType string, body []byte) any {
	if strings.Contains(strings.ToLower(contentType), "application/json") {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			return v
		}
	}
	return string(body)
}

// paramString coerces a query value. ok is false for nil values, including
// typed nil pointers.
func paramString(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		value = rv.Elem().Interface()
	}
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	}
	return fmt.Sprint(value), true
}

// endpointLabel reduces a URL to its path with numeric segments replaced by
// ":id" to keep metric cardinality bounded.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
