package models

import "time"

// JobStatus is the lifecycle state of a document processing job.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition can leave s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job tracks one uploaded document. POST /process returns its ID; the client
// polls GET /process?jobId=<id> until Status is completed or failed.
// Jobs are created in processing; there is no pending state.
type Job struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	Filename  string     `json:"filename"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// JobResult is the serialized payload of a completed job and the filename
// suggested to the client for the download.
type JobResult struct {
	Filename string `json:"filename"`
	Payload  []byte `json:"-"`
}
