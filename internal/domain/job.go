package domain

import "time"

// JobStatus is the lifecycle state of a background classification job.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job tracks one background classification run.
type Job struct {
	ID          string     `json:"job_id"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
	TotalRepos  *int       `json:"total_repos"`
	Error       *string    `json:"error"`
}

// JobResult is the stored output of a completed job.
type JobResult struct {
	JobID       string       `json:"job_id"`
	Repos       []Repository `json:"repos"`
	Stats       *Statistics  `json:"stats"`
	CompletedAt time.Time    `json:"completed_at"`
}
