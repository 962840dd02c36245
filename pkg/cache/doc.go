// Package cache keeps last-known-good Harvest snapshots in a key-value store
// so consumers can render immediately while a live fetch runs.
//
// The cache is advisory and never blocks a fetch. Corrupted entries are
// logged and reported as misses.
//
// # Keys
//
//   - jobs:v{n}              the open jobs list ([]harvest.JobListItem)
//   - pipeline:{jobID}       a job's pipeline (harvest.JobPipelineData)
//   - {key}:updatedAt        RFC 3339 timestamp of the last write to {key}
//
// Bumping JobsVersion invalidates every previously written jobs list.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(cache.NewRedisStore(redisClient))
//
//	if jobs, ok := manager.GetJobs(ctx); ok {
//		render(jobs)
//	}
//
// # Metrics
//
//   - harvest_cache_hits_total{kind} - Cache hits by snapshot kind
//   - harvest_cache_misses_total{kind} - Cache misses (absent or undecodable)
//   - harvest_cache_errors_total{operation} - Store and encoding errors
package cache
