package cache

import (
	"fmt"
	"strconv"
)

// JobsVersion is the format version of the cached jobs list.
const JobsVersion = 4

// Snapshot kinds.
const (
	KindJobs     = "jobs"
	KindPipeline = "pipeline"
)

const updatedAtSuffix = ":updatedAt"

// Key identifies a cached snapshot.
type Key struct {
	// Kind is KindJobs or KindPipeline.
	Kind string

	// Version is appended as ":v{n}" when non-zero.
	Version int

	// JobID identifies the job for pipeline snapshots.
	JobID int64
}

// JobsKey returns the key of the jobs list at version.
func JobsKey(version int) Key {
	return Key{Kind: KindJobs, Version: version}
}

// PipelineKey returns the key of a job's pipeline.
func PipelineKey(jobID int64) Key {
	return Key{Kind: KindPipeline, JobID: jobID}
}

// String renders the storage key.
//
// Examples:
//
//	jobs:v4
//	pipeline:123
func (k Key) String() string {
	switch {
	case k.Kind == KindPipeline:
		return k.Kind + ":" + strconv.FormatInt(k.JobID, 10)
	case k.Version != 0:
		return fmt.Sprintf("%s:v%d", k.Kind, k.Version)
	default:
		return k.Kind
	}
}

// UpdatedAt returns the sibling key holding the last write time.
func (k Key) UpdatedAt() string {
	return k.String() + updatedAtSuffix
}
