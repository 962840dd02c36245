// Package harvest composes paginated Harvest calls into the jobs list and
// per-job pipeline queries.
package harvest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Sternrassler/harvest-client/pkg/client"
	"github.com/Sternrassler/harvest-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Resource paths consumed by the service.
const (
	PathJobs         = "jobs"
	PathJobPosts     = "job_posts"
	PathApplications = "applications"
	PathCandidates   = "candidates"
)

// API is the subset of *client.Client the service needs.
type API interface {
	pagination.PageFetcher
	BuildURL(path string, params client.Params) (string, error)
}

// Config holds service configuration.
type Config struct {
	// CandidateBatchSize is the maximum number of candidate IDs per request.
	CandidateBatchSize int

	// Pagination configures the underlying paginator.
	Pagination pagination.Config

	// Logger defaults to the global logger tagged component=harvest-service.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		CandidateBatchSize: pagination.DefaultChunkSize,
		Pagination:         pagination.DefaultConfig(),
	}
}

// Service runs the aggregate Harvest queries.
type Service struct {
	api       API
	paginator *pagination.Paginator
	config    Config
	logger    zerolog.Logger
}

// NewService creates a service on top of api.
func NewService(api API, cfg Config) *Service {
	if cfg.CandidateBatchSize <= 0 {
		cfg.CandidateBatchSize = pagination.DefaultChunkSize
	}
	logger := log.With().Str("component", "harvest-service").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Service{
		api:       api,
		paginator: pagination.NewPaginator(api, cfg.Pagination),
		config:    cfg,
		logger:    logger,
	}
}

// listAll builds the first-page URL for path and follows it to the end.
func listAll[T any](ctx context.Context, s *Service, path string, params client.Params) ([]T, error) {
	first, err := s.api.BuildURL(path, params)
	if err != nil {
		return nil, err
	}
	return pagination.ListAll[T](ctx, s.paginator, first)
}

// FetchOpenJobs returns every job with status open.
func (s *Service) FetchOpenJobs(ctx context.Context) ([]Job, error) {
	return listAll[Job](ctx, s, PathJobs, client.Params{"status": JobStatusOpen})
}

// FetchActiveJobPosts returns one JobListItem per open job with a non-empty
// name, flagged with the visibility of its active posts and sorted by title.
// Open jobs and active posts are fetched concurrently.
func (s *Service) FetchActiveJobPosts(ctx context.Context) ([]JobListItem, error) {
	var (
		jobs  []Job
		posts []JobPost
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jobs, err = s.FetchOpenJobs(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = listAll[JobPost](gctx, s, PathJobPosts, client.Params{"active": true})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := BuildJobList(jobs, posts)

	s.logger.Debug().
		Int("jobs", len(jobs)).
		Int("posts", len(posts)).
		Int("items", len(items)).
		Msg("Built job list")

	return items, nil
}

type postFlags struct {
	internal bool
	external bool
}

// BuildJobList joins jobs with their posts. Flags are OR-folded across all
// posts of a job; jobs without posts get HasNoPosts. Jobs with an empty name
// are dropped and the result is sorted by title.
func BuildJobList(jobs []Job, posts []JobPost) []JobListItem {
	flags := make(map[int64]postFlags, len(posts))
	for _, post := range posts {
		f := flags[post.JobID]
		f.internal = f.internal || post.Internal
		f.external = f.external || post.External
		flags[post.JobID] = f
	}

	items := make([]JobListItem, 0, len(jobs))
	for _, job := range jobs {
		if job.Name == "" {
			continue
		}
		f, ok := flags[job.ID]
		items = append(items, JobListItem{
			JobID:       job.ID,
			Title:       job.Name,
			HasInternal: f.internal,
			HasExternal: f.external,
			HasNoPosts:  !ok,
		})
	}

	col := newCollator()
	sort.SliceStable(items, func(i, j int) bool {
		return col.CompareString(items[i].Title, items[j].Title) < 0
	})
	return items
}

// FetchJobPipelineData returns the stages, active applications and
// referenced candidates of a job. Stages and applications are fetched
// concurrently; candidates are then fetched in sequential batches.
func (s *Service) FetchJobPipelineData(ctx context.Context, jobID int64) (*JobPipelineData, error) {
	var (
		stages       []JobStage
		applications []Application
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stages, err = listAll[JobStage](gctx, s, fmt.Sprintf("%s/%d/stages", PathJobs, jobID), nil)
		return err
	})
	g.Go(func() error {
		var err error
		applications, err = listAll[Application](gctx, s, PathApplications, client.Params{
			"job_id": jobID,
			"status": "active",
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := UniqueCandidateIDs(applications)
	candidates, err := pagination.FetchInBatches(ctx, ids, s.config.CandidateBatchSize,
		func(ctx context.Context, chunk []int64) ([]Candidate, error) {
			return listAll[Candidate](ctx, s, PathCandidates, client.Params{
				"candidate_ids": joinIDs(chunk),
			})
		})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int64("job_id", jobID).
		Int("stages", len(stages)).
		Int("applications", len(applications)).
		Int("candidates", len(candidates)).
		Msg("Fetched job pipeline")

	return &JobPipelineData{
		Stages:       stages,
		Applications: applications,
		Candidates:   BuildCandidateMap(candidates),
	}, nil
}

// UniqueCandidateIDs returns the distinct candidate IDs referenced by
// applications, in order of first appearance.
func UniqueCandidateIDs(applications []Application) []int64 {
	seen := make(map[int64]struct{}, len(applications))
	ids := make([]int64, 0, len(applications))
	for _, app := range applications {
		if _, ok := seen[app.CandidateID]; ok {
			continue
		}
		seen[app.CandidateID] = struct{}{}
		ids = append(ids, app.CandidateID)
	}
	return ids
}

// BuildCandidateMap keys candidates by ID. Later duplicates win.
func BuildCandidateMap(candidates []Candidate) map[int64]Candidate {
	m := make(map[int64]Candidate, len(candidates))
	for _, c := range candidates {
		m[c.ID] = c
	}
	return m
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// newCollator returns a locale-aware comparator. Collators keep internal
// buffers, so each sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.English)
}
