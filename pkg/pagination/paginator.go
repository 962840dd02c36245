package pagination

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "harvest_pages_fetched_total",
	Help: "Total number of paginated Harvest pages fetched",
})

// ErrTooManyPages is returned when Config.MaxPages is set and exceeded.
var ErrTooManyPages = errors.New("pagination page limit exceeded")

// RawPage is a single undecoded response page.
type RawPage struct {
	Body        []byte
	ContentType string

	// Link is the raw Link response header.
	Link string
}

// IsJSON reports whether the page declared an application/json body.
func (p RawPage) IsJSON() bool {
	return strings.Contains(strings.ToLower(p.ContentType), "application/json")
}

// PageFetcher is the interface the Harvest client implements for single-page
// fetching against an absolute URL.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (RawPage, error)
}

// Config holds paginator configuration.
type Config struct {
	// MaxPages caps the number of pages followed. Zero means unlimited.
	MaxPages int
}

// DefaultConfig returns the default configuration (no page cap).
func DefaultConfig() Config {
	return Config{}
}

// Paginator follows rel="next" links through a PageFetcher.
type Paginator struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewPaginator creates a new paginator.
func NewPaginator(fetcher PageFetcher, config Config) *Paginator {
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}
	return &Paginator{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "paginator").Logger(),
	}
}

type pageKind int

const (
	kindSingle pageKind = iota
	kindSequence
)

// Page is the decoded body of one response: either a sequence of values or a
// single value. The shape is decided once per response by DecodePage.
type Page[T any] struct {
	kind  pageKind
	items []T
}

// Sequence wraps a decoded JSON array.
func Sequence[T any](items []T) Page[T] {
	return Page[T]{kind: kindSequence, items: items}
}

// Single wraps a single decoded value.
func Single[T any](item T) Page[T] {
	return Page[T]{kind: kindSingle, items: []T{item}}
}

// IsSequence reports whether the page body was an array.
func (p Page[T]) IsSequence() bool {
	return p.kind == kindSequence
}

// Items returns the page's values in order. A Single page yields one item.
func (p Page[T]) Items() []T {
	return p.items
}

// DecodePage decodes a raw page into a Page. JSON arrays become a Sequence,
// any other JSON value a Single. Non-JSON bodies are treated as a single text
// value, so T must accept a JSON string for them to decode.
func DecodePage[T any](raw RawPage) (Page[T], error) {
	if !raw.IsJSON() {
		text, err := json.Marshal(string(raw.Body))
		if err != nil {
			return Page[T]{}, fmt.Errorf("encode text page: %w", err)
		}
		var item T
		if err := json.Unmarshal(text, &item); err != nil {
			return Page[T]{}, fmt.Errorf("decode text page: %w", err)
		}
		return Single(item), nil
	}

	body := bytes.TrimSpace(raw.Body)
	if len(body) > 0 && body[0] == '[' {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return Page[T]{}, fmt.Errorf("decode page array: %w", err)
		}
		return Sequence(items), nil
	}

	var item T
	if err := json.Unmarshal(body, &item); err != nil {
		return Page[T]{}, fmt.Errorf("decode page object: %w", err)
	}
	return Single(item), nil
}

// ListAll fetches firstURL and every page reachable through rel="next" links,
// returning all items in page order. Any failing page fails the whole call and
// the pages accumulated so far are discarded.
func ListAll[T any](ctx context.Context, p *Paginator, firstURL string) ([]T, error) {
	start := time.Now()
	results := make([]T, 0)
	next := firstURL
	pages := 0

	for next != "" {
		if p.config.MaxPages > 0 && pages >= p.config.MaxPages {
			return nil, fmt.Errorf("%w: %d pages from %s", ErrTooManyPages, pages, firstURL)
		}

		raw, err := p.fetcher.FetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		pages++
		pagesFetchedTotal.Inc()

		page, err := DecodePage[T](raw)
		if err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", pages, firstURL, err)
		}
		results = append(results, page.Items()...)

		p.logger.Debug().
			Str("url", next).
			Int("page", pages).
			Int("items", len(page.Items())).
			Msg("Fetched page")

		next, _ = ParseNextLink(raw.Link)
	}

	p.logger.Debug().
		Str("url", firstURL).
		Int("pages", pages).
		Int("items", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	return results, nil
}
