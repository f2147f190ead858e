package models

import "time"

// JobType tags the per-record processing policy a batch job runs (§4.12).
type JobType string

const (
	JobTypeIdentityMatching  JobType = "identity-matching"
	JobTypeDataValidation    JobType = "data-validation"
	JobTypeDataQuality       JobType = "data-quality"
	JobTypeDeduplication     JobType = "deduplication"
	JobTypeHouseholdDetect   JobType = "household-detection"
	JobTypeBulkExport        JobType = "bulk-export"
)

// JobPriority orders jobs on the batch scheduler's queue.
type JobPriority int

const (
	PriorityLow JobPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// JobStatus is a node in the §4.12 state machine.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobPaused    JobStatus = "paused"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// JobCounters are the observable progress counters (invariant 4: processed == successful+failed).
type JobCounters struct {
	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BatchJob is the full lifecycle record for one submitted batch.
type BatchJob struct {
	ID                  string                 `json:"id"`
	Name                string                 `json:"name"`
	Type                JobType                `json:"type"`
	Priority            JobPriority            `json:"priority"`
	Status              JobStatus              `json:"status"`
	Counters            JobCounters            `json:"counters"`
	SubmittedAt         time.Time              `json:"submittedAt"`
	StartedAt           *time.Time             `json:"startedAt,omitempty"`
	FinishedAt          *time.Time             `json:"finishedAt,omitempty"`
	InputHandle         string                 `json:"inputHandle"`
	OutputHandle        string                 `json:"outputHandle"`
	Config              map[string]interface{} `json:"config,omitempty"`
	EstimatedCompletion *time.Time             `json:"estimatedCompletion,omitempty"`
}

// RecordOutcome is one line of the append-only output stream (§6
// "Persisted batch state layout").
type RecordOutcome struct {
	RecordID    string                 `json:"recordId"`
	IdentityID  string                 `json:"identityId,omitempty"`
	Confidence  *float64               `json:"confidence,omitempty"`
	MatchType   string                 `json:"matchType,omitempty"`
	Status      string                 `json:"status"`
	Error       string                 `json:"error,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}
