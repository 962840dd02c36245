package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/harvest-client/pkg/harvest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Manager reads and writes Harvest snapshots through a Store.
type Manager struct {
	store   Store
	jobsKey Key
	logger  zerolog.Logger
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithJobsVersion overrides JobsVersion for the jobs list key.
func WithJobsVersion(version int) Option {
	return func(m *Manager) { m.jobsKey = JobsKey(version) }
}

// WithLogger sets the manager's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock sets the time source for updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a cache manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	m := &Manager{
		store:   store,
		jobsKey: JobsKey(JobsVersion),
		logger:  log.With().Str("component", "cache").Logger(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// JobsKey returns the key the jobs list is stored under.
func (m *Manager) JobsKey() Key {
	return m.jobsKey
}

// GetJobs returns the cached jobs list. ok is false on a miss, a store
// error, or an undecodable entry.
func (m *Manager) GetJobs(ctx context.Context) ([]harvest.JobListItem, bool) {
	return load[[]harvest.JobListItem](ctx, m, m.jobsKey)
}

// SetJobs stores the jobs list and stamps its updatedAt key.
func (m *Manager) SetJobs(ctx context.Context, jobs []harvest.JobListItem) error {
	if jobs == nil {
		jobs = []harvest.JobListItem{}
	}
	return m.save(ctx, m.jobsKey, jobs)
}

// JobsUpdatedAt returns when the jobs list was last written.
func (m *Manager) JobsUpdatedAt(ctx context.Context) (time.Time, bool) {
	return m.updatedAt(ctx, m.jobsKey)
}

// GetPipeline returns the cached pipeline of jobID.
func (m *Manager) GetPipeline(ctx context.Context, jobID int64) (*harvest.JobPipelineData, bool) {
	data, ok := load[harvest.JobPipelineData](ctx, m, PipelineKey(jobID))
	if !ok {
		return nil, false
	}
	return &data, true
}

// SetPipeline stores the pipeline of jobID and stamps its updatedAt key.
func (m *Manager) SetPipeline(ctx context.Context, jobID int64, data *harvest.JobPipelineData) error {
	if data == nil {
		return fmt.Errorf("pipeline data for job %d cannot be nil", jobID)
	}
	return m.save(ctx, PipelineKey(jobID), data)
}

// PipelineUpdatedAt returns when the pipeline of jobID was last written.
func (m *Manager) PipelineUpdatedAt(ctx context.Context, jobID int64) (time.Time, bool) {
	return m.updatedAt(ctx, PipelineKey(jobID))
}

func load[T any](ctx context.Context, m *Manager, key Key) (T, bool) {
	var value T

	raw, err := m.store.Get(ctx, key.String())
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			CacheErrors.WithLabelValues("get").Inc()
			m.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
		}
		CacheMisses.WithLabelValues(key.Kind).Inc()
		return value, false
	}

	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		CacheErrors.WithLabelValues("decode").Inc()
		CacheMisses.WithLabelValues(key.Kind).Inc()
		m.logger.Warn().
			Err(fmt.Errorf("%w: %v", ErrInvalidEntry, err)).
			Str("key", key.String()).
			Msg("Failed to decode cached entry")
		return value, false
	}

	CacheHits.WithLabelValues(key.Kind).Inc()
	m.logger.Debug().Str("key", key.String()).Int("bytes", len(raw)).Msg("Cache hit")
	return value, true
}

func (m *Manager) save(ctx context.Context, key Key, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("encode").Inc()
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if err := m.store.Set(ctx, key.String(), string(data)); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("store %s: %w", key, err)
	}

	stamp := m.now().UTC().Format(time.RFC3339Nano)
	if err := m.store.Set(ctx, key.UpdatedAt(), stamp); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("store %s: %w", key.UpdatedAt(), err)
	}

	m.logger.Debug().Str("key", key.String()).Int("bytes", len(data)).Msg("Cached snapshot")
	return nil
}

func (m *Manager) updatedAt(ctx context.Context, key Key) (time.Time, bool) {
	raw, err := m.store.Get(ctx, key.UpdatedAt())
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key.UpdatedAt()).Msg("Invalid updatedAt stamp")
		return time.Time{}, false
	}
	return t, true
}
