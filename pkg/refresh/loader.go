package refresh

import (
	"context"
	"time"

	"github.com/Sternrassler/harvest-client/pkg/harvest"
)

// Source tells where an Update came from.
type Source int

const (
	SourceCache Source = iota
	SourceLive
)

func (s Source) String() string {
	if s == SourceLive {
		return "live"
	}
	return "cache"
}

// Update is one value delivered to a loading consumer.
type Update[T any] struct {
	Value  T
	Source Source

	// UpdatedAt is the cache stamp for SourceCache, the fetch time for SourceLive.
	UpdatedAt time.Time
}

// LoadJobs emits the cached jobs list (if any), then fetches the live list,
// writes it through the cache and emits it. Once ctx is cancelled nothing
// further is written or emitted and ctx.Err() is returned.
func (r *Refresher) LoadJobs(ctx context.Context, emit func(Update[[]harvest.JobListItem])) error {
	return loadThrough(ctx, r, "jobs",
		func(ctx context.Context) ([]harvest.JobListItem, time.Time, bool) {
			jobs, ok := r.cache.GetJobs(ctx)
			if !ok {
				return nil, time.Time{}, false
			}
			at, _ := r.cache.JobsUpdatedAt(ctx)
			return jobs, at, true
		},
		r.source.FetchActiveJobPosts,
		r.cache.SetJobs,
		emit)
}

// LoadPipeline is LoadJobs for a single job's pipeline.
func (r *Refresher) LoadPipeline(ctx context.Context, jobID int64, emit func(Update[*harvest.JobPipelineData])) error {
	return loadThrough(ctx, r, "pipeline",
		func(ctx context.Context) (*harvest.JobPipelineData, time.Time, bool) {
			data, ok := r.cache.GetPipeline(ctx, jobID)
			if !ok {
				return nil, time.Time{}, false
			}
			at, _ := r.cache.PipelineUpdatedAt(ctx, jobID)
			return data, at, true
		},
		func(ctx context.Context) (*harvest.JobPipelineData, error) {
			return r.source.FetchJobPipelineData(ctx, jobID)
		},
		func(ctx context.Context, data *harvest.JobPipelineData) error {
			return r.cache.SetPipeline(ctx, jobID, data)
		},
		emit)
}

func loadThrough[T any](
	ctx context.Context,
	r *Refresher,
	resource string,
	cached func(context.Context) (T, time.Time, bool),
	fetch func(context.Context) (T, error),
	store func(context.Context, T) error,
	emit func(Update[T]),
) error {
	if value, at, ok := cached(ctx); ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		emit(Update[T]{Value: value, Source: SourceCache, UpdatedAt: at})
	}

	value, err := fetch(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	// Consumer may have gone away while the fetch was in flight.
	if err := ctx.Err(); err != nil {
		r.logger.Debug().Str("resource", resource).Msg("Load cancelled, discarding live result")
		return err
	}

	if err := store(ctx, value); err != nil {
		r.logger.Warn().Err(err).Str("resource", resource).Msg("Failed to cache live result")
	}
	emit(Update[T]{Value: value, Source: SourceLive, UpdatedAt: time.Now()})
	return nil
}
