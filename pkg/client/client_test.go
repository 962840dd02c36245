package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sternrassler/harvest-client/internal/testutil"
)

func newTestClient(t *testing.T, baseURL string, mutate ...func(*Config)) *Client {
	t.Helper()

	cfg := DefaultConfig("test-key")
	cfg.BaseURL = baseURL
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		apiKey      string
		expectError bool
	}{
		{name: "valid key", apiKey: "abc", expectError: false},
		{name: "empty key", apiKey: "", expectError: true},
		{name: "whitespace key", apiKey: "   ", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(DefaultConfig(tt.apiKey))
			if tt.expectError {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected ConfigError, got %v", err)
				}
				if !errors.Is(err, ErrMissingAPIKey) {
					t.Errorf("expected ErrMissingAPIKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNew_NormalisesBaseURL(t *testing.T) {
	c := newTestClient(t, "  https://example.test/v1/  ")
	if c.BaseURL() != "https://example.test/v1" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}

	d := newTestClient(t, "")
	if d.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want default", d.BaseURL())
	}
}

func TestBuildURL(t *testing.T) {
	c := newTestClient(t, "https://example.test/v1")
	var nilPtr *int
	three := 3

	tests := []struct {
		name   string
		path   string
		params Params
		want   string
	}{
		{name: "leading slash added", path: "jobs", want: "https://example.test/v1/jobs"},
		{name: "path kept", path: "/jobs/1/stages", want: "https://example.test/v1/jobs/1/stages"},
		{
			name:   "nil params skipped",
			path:   "/jobs",
			params: Params{"status": "open", "skip": nil, "ptr": nilPtr},
			want:   "https://example.test/v1/jobs?status=open",
		},
		{
			name:   "values coerced",
			path:   "/job_posts",
			params: Params{"active": true, "per_page": 500, "page": &three},
			want:   "https://example.test/v1/job_posts?active=true&page=3&per_page=500",
		},
		{
			name:   "large ids without exponent",
			path:   "/applications",
			params: Params{"job_id": float64(4012345678), "candidate_id": json.Number("4098765432")},
			want:   "https://example.test/v1/applications?candidate_id=4098765432&job_id=4012345678",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.BuildURL(tt.path, tt.params)
			if err != nil {
				t.Fatalf("BuildURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequest_EmptyPath(t *testing.T) {
	mock := testutil.NewMockHarvest()
	defer mock.Close()
	c := newTestClient(t, mock.URL())

	_, err := c.Request(context.Background(), Request{Path: ""})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ConfigError wrapping ErrEmptyPath, got %v", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("expected no requests, got %d", mock.RequestCount())
	}
}

func TestRequest_Headers(t *testing.T) {
	mock := testutil.NewMockHarvest()
	defer mock.Close()
	mock.SetJSON("/jobs", []map[string]any{{"id": 1}})

	c := newTestClient(t, mock.URL(), func(cfg *Config) { cfg.OnBehalfOf = "4080" })

	if _, err := c.Get(context.Background(), "/jobs", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	reqs := mock.RequestsFor("/jobs")
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	h := reqs[0].Header

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("test-key:"))
	if got := h.Get("Authorization"); got != wantAuth {
		t.Errorf("Authorization = %q, want %q", got, wantAuth)
	}
	if got := h.Get("On-Behalf-Of"); got != "4080" {
		t.Errorf("On-Behalf-Of = %q, want 4080", got)
	}
	if got := h.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q", got)
	}
	if got := h.Get("Content-Type"); got != "" {
		t.Errorf("Content-Type should be unset without body, got %q", got)
	}
}

func TestRequest_NoOnBehalfOfByDefault(t *testing.T) {
	mock := testutil.NewMockHarvest()
	defer mock.Close()
	mock.SetJSON("/jobs", []any{})

	c := newTestClient(t, mock.URL())
	if _, err := c.Get(context.Background(), "/jobs", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := mock.Requests()[0].Header.Get("On-Behalf-Of"); got != "" {
		t.Errorf("On-Behalf-Of = %q, want empty", got)
	}
}

func TestRequest_JSONBody(t *testing.T) {
	var gotBody, gotType, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotMethod = r.Method
		testutil.WriteJSON(w, http.StatusCreated, map[string]any{"id": 9}, nil)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.Request(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/candidates",
		Body:   map[string]string{"first_name": "Ada"},
	})
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s", gotMethod)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotBody != `{"first_name":"Ada"}` {
		t.Errorf("body = %s", gotBody)
	}

	var decoded struct {
		ID int `json:"id"`
	}
	if err := resp.Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.ID != 9 {
		t.Errorf("ID = %d, want 9", decoded.ID)
	}
}

func TestResponse_TextBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("pong"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.Get(context.Background(), "/ping", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.IsJSON() {
		t.Error("expected non-JSON response")
	}
	if got := resp.Data(); got != "pong" {
		t.Errorf("Data() = %v, want pong", got)
	}
	if err := resp.Decode(&struct{}{}); err == nil {
		t.Error("Decode() on text body should fail")
	}
}

func TestRequest_HarvestError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		class     ErrorClass
		rateLimit bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, class: ErrorClassClient},
		{name: "not found", status: http.StatusNotFound, class: ErrorClassClient},
		{name: "rate limited", status: http.StatusTooManyRequests, class: ErrorClassRateLimit, rateLimit: true},
		{name: "server error", status: http.StatusBadGateway, class: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockHarvest()
			defer mock.Close()
			mock.SetStatus("/jobs", tt.status)

			c := newTestClient(t, mock.URL())
			_, err := c.Get(context.Background(), "/jobs", nil)

			var herr *HarvestError
			if !errors.As(err, &herr) {
				t.Fatalf("expected HarvestError, got %v", err)
			}
			if herr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", herr.StatusCode, tt.status)
			}
			if herr.Class != tt.class {
				t.Errorf("Class = %s, want %s", herr.Class, tt.class)
			}
			body, ok := herr.Body.(map[string]any)
			if !ok || body["message"] != http.StatusText(tt.status) {
				t.Errorf("Body = %#v", herr.Body)
			}
			if IsRateLimit(err) != tt.rateLimit {
				t.Errorf("IsRateLimit() = %v, want %v", IsRateLimit(err), tt.rateLimit)
			}
			if StatusCode(err) != tt.status {
				t.Errorf("StatusCode(err) = %d", StatusCode(err))
			}
		})
	}
}

func TestRequest_HarvestErrorTextBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("<h1>down</h1>"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Get(context.Background(), "/jobs", nil)

	var herr *HarvestError
	if !errors.As(err, &herr) {
		t.Fatalf("expected HarvestError, got %v", err)
	}
	if herr.Body != "<h1>down</h1>" {
		t.Errorf("Body = %#v", herr.Body)
	}
	if !strings.Contains(herr.Error(), "503") {
		t.Errorf("Error() = %q", herr.Error())
	}
}

func TestRequest_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestClient(t, url)
	_, err := c.Get(context.Background(), "/jobs", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var herr *HarvestError
	if errors.As(err, &herr) {
		t.Errorf("network failure should not be a HarvestError: %v", err)
	}
}

func TestFetchPage_ReturnsLink(t *testing.T) {
	mock := testutil.NewMockHarvest()
	defer mock.Close()
	mock.SetPages("/jobs", []int{1}, []int{2})

	c := newTestClient(t, mock.URL())
	raw, err := c.FetchPage(context.Background(), mock.URL()+"/jobs")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if !raw.IsJSON() {
		t.Errorf("ContentType = %q", raw.ContentType)
	}
	if !strings.Contains(raw.Link, `rel="next"`) {
		t.Errorf("Link = %q", raw.Link)
	}
}

func TestRequest_UpdatesTracker(t *testing.T) {
	mock := testutil.NewMockHarvest()
	defer mock.Close()
	mock.SetHandler("/jobs", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, []any{}, map[string]string{
			"X-RateLimit-Limit":     "50",
			"X-RateLimit-Remaining": "3",
		})
	})

	c := newTestClient(t, mock.URL())
	if _, err := c.Get(context.Background(), "/jobs", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	state := c.Tracker().State()
	if state.Limit != 50 || state.Remaining != 3 {
		t.Errorf("state = %+v", state)
	}
	if !state.IsLow() {
		t.Error("expected low quota")
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://h.test/v1/jobs", "/v1/jobs"},
		{"https://h.test/v1/jobs/123/stages", "/v1/jobs/:id/stages"},
		{"https://h.test/v1/candidates?candidate_ids=1,2", "/v1/candidates"},
	}
	for _, tt := range tests {
		if got := endpointLabel(tt.url); got != tt.want {
			t.Errorf("endpointLabel(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
