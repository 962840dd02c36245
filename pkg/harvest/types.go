package harvest

// Job is a requisition tracked by Harvest.
type Job struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	Confidential  bool    `json:"confidential"`
	RequisitionID *string `json:"requisition_id,omitempty"`
}

// Job statuses reported by Harvest. Other values pass through unchanged.
const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"
	JobStatusDraft  = "draft"
)

// JobPost is a published listing for a Job.
type JobPost struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	JobID    int64  `json:"job_id"`
	Active   bool   `json:"active"`
	Live     bool   `json:"live"`
	Internal bool   `json:"internal"`
	External bool   `json:"external"`
}

// JobListItem is one open job enriched with the visibility of its posts.
// The JSON shape is the cached jobs-list format.
type JobListItem struct {
	JobID       int64  `json:"job_id"`
	Title       string `json:"title"`
	HasInternal bool   `json:"hasInternal"`
	HasExternal bool   `json:"hasExternal"`
	HasNoPosts  bool   `json:"hasNoPosts"`
}

// JobStage is one step of a job's hiring pipeline.
type JobStage struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	JobID     int64  `json:"job_id"`
	Priority  int    `json:"priority"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// StageRef is the stage summary embedded in an application.
type StageRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// JobRef is the job summary embedded in an application.
type JobRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Application is a candidate's attempt at a job.
type Application struct {
	ID             int64     `json:"id"`
	CandidateID    int64     `json:"candidate_id"`
	AppliedAt      *string   `json:"applied_at"`
	LastActivityAt *string   `json:"last_activity_at"`
	CurrentStage   *StageRef `json:"current_stage"`
	Status         string    `json:"status"`
	Jobs           []JobRef  `json:"jobs"`
}

// Candidate is a person behind one or more applications.
type Candidate struct {
	ID        int64   `json:"id"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Name      *string `json:"name,omitempty"`
}

// JobPipelineData is a job's stages, active applications and the candidates
// they reference, keyed by candidate ID. It is the cached pipeline unit.
type JobPipelineData struct {
	Stages       []JobStage          `json:"stages"`
	Applications []Application       `json:"applications"`
	Candidates   map[int64]Candidate `json:"candidates"`
}

// PipelineSection groups applications sitting at the same stage.
type PipelineSection struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Applications []Application `json:"applications"`
}
