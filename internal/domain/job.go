package domain

import "time"

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindImageGenerate JobKind = "image_generate"
	JobKindImageEnhance  JobKind = "image_enhance"
	JobKindVideoGenerate JobKind = "video_generate"
)

// JobStatus enumerates job lifecycle states. Transitions are monotonic along
// submitted -> queued -> running -> succeeded|failed; a terminal status never
// transitions again.
type JobStatus string

const (
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Rank maps a status onto the monotonic ordering used to reject stale
// updates. Both terminal states share the highest rank. Unknown statuses rank
// below submitted so a malformed remote record can never displace local state.
func (s JobStatus) Rank() int {
	switch s {
	case JobStatusSubmitted:
		return 1
	case JobStatusQueued:
		return 2
	case JobStatusRunning:
		return 3
	case JobStatusSucceeded, JobStatusFailed:
		return 4
	default:
		return 0
	}
}

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job is one tracked asynchronous generation request. Jobs are value types:
// every update replaces the whole record, so a concurrent reader observes
// either the fully-old or the fully-new state, never a torn mix.
type Job struct {
	ID           string
	ClientHandle string
	Kind         JobKind
	Status       JobStatus
	Progress     int
	Title        string
	Provider     string
	AspectRatio  string
	Quantity     int
	ResultRefs   []string
	ErrorInfo    string
	SubmittedAt  time.Time
	UpdatedAt    time.Time
}

// Handle returns the key a job is tracked under: the remote id once known,
// otherwise the local correlation handle.
func (j Job) Handle() string {
	if j.ID != "" {
		return j.ID
	}
	return j.ClientHandle
}

// StatusUpdate is the payload of one status poll. ResultRefs is populated
// only for succeeded, ErrorInfo only for failed.
type StatusUpdate struct {
	Status     JobStatus
	Progress   int
	ResultRefs []string
	ErrorInfo  string
}

// SubmitRequest carries the caller-supplied parameters of a new job.
type SubmitRequest struct {
	Kind        JobKind
	Prompt      string
	Title       string
	Provider    string
	AspectRatio string
	Quantity    int
	Locale      string
}

// Pagination describes one page of the remote job list.
type Pagination struct {
	Page       int
	PerPage    int
	TotalItems int
	TotalPages int
}

// ListQuery selects a page of the remote job list. Zero values mean
// "no filter" and the server's defaults.
type ListQuery struct {
	Status  JobStatus
	Kind    JobKind
	Page    int
	PerPage int
}

// JobPage is one fetched page of the authoritative remote list.
type JobPage struct {
	Items []Job
	Page  Pagination
}
