// Package refresh drives the Harvest queries through rate-limit retries and
// keeps the snapshot cache current.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/harvest-client/pkg/cache"
	"github.com/Sternrassler/harvest-client/pkg/client"
	"github.com/Sternrassler/harvest-client/pkg/harvest"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var refreshJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "harvest_refresh_jobs_total",
	Help: "Pipelines refreshed by result",
}, []string{"result"})

// Aggregator is the set of queries the refresher drives. *harvest.Service
// implements it.
type Aggregator interface {
	FetchActiveJobPosts(ctx context.Context) ([]harvest.JobListItem, error)
	FetchJobPipelineData(ctx context.Context, jobID int64) (*harvest.JobPipelineData, error)
}

// Refresher refreshes cached snapshots.
type Refresher struct {
	source  Aggregator
	cache   *cache.Manager
	retrier *client.Retrier
	logger  zerolog.Logger
}

// New creates a Refresher. A nil retrier uses client.DefaultRetryConfig.
func New(source Aggregator, manager *cache.Manager, retrier *client.Retrier) *Refresher {
	if retrier == nil {
		retrier = client.NewRetrier(client.DefaultRetryConfig())
	}
	return &Refresher{
		source:  source,
		cache:   manager,
		retrier: retrier,
		logger:  log.With().Str("component", "refresh").Logger(),
	}
}

// Result summarises a bulk refresh.
type Result struct {
	RunID     string
	Jobs      int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Summary renders the result for humans.
func (r Result) Summary() string {
	if r.Failed > 0 {
		return fmt.Sprintf("Updated %d jobs, %d failed", r.Succeeded, r.Failed)
	}
	return fmt.Sprintf("Updated %d jobs", r.Succeeded)
}

// RefreshAllCaches re-fetches the jobs list and every listed job's pipeline,
// each under rate-limit retry, writing all results through the cache. A
// failure fetching the jobs list aborts the refresh; a failing pipeline is
// logged and counted.
func (r *Refresher) RefreshAllCaches(ctx context.Context) (Result, error) {
	start := time.Now()
	result := Result{RunID: uuid.NewString()}
	logger := r.logger.With().Str("run_id", result.RunID).Logger()

	logger.Info().Msg("Cache refresh started")

	jobs, err := client.Retry(ctx, r.retrier, "open jobs", r.source.FetchActiveJobPosts)
	if err != nil {
		logger.Error().Err(err).Msg("Cache refresh failed fetching jobs")
		return result, fmt.Errorf("fetch jobs: %w", err)
	}
	result.Jobs = len(jobs)

	if err := ctx.Err(); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	if err := r.cache.SetJobs(ctx, jobs); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache jobs")
	}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		jobID := job.JobID
		data, err := client.Retry(ctx, r.retrier, fmt.Sprintf("pipeline for job %d", jobID),
			func(ctx context.Context) (*harvest.JobPipelineData, error) {
				return r.source.FetchJobPipelineData(ctx, jobID)
			})
		if err != nil {
			result.Failed++
			refreshJobsTotal.WithLabelValues("error").Inc()
			logger.Error().Err(err).Int64("job_id", jobID).Msg("Failed to refresh pipeline")
			continue
		}

		// A fetch that finished after cancellation is discarded.
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		if err := r.cache.SetPipeline(ctx, jobID, data); err != nil {
			logger.Warn().Err(err).Int64("job_id", jobID).Msg("Failed to cache pipeline")
		}
		result.Succeeded++
		refreshJobsTotal.WithLabelValues("success").Inc()
	}

	result.Duration = time.Since(start)
	logger.Info().
		Int("jobs", result.Jobs).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Cache refresh complete")

	return result, nil
}
