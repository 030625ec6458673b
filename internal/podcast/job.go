package podcast

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Result is the payload of a completed job.
type Result struct {
	AudioURL    string  `json:"audioUrl"`
	Title       string  `json:"title,omitempty"`
	Language    string  `json:"language"`
	DurationSec float64 `json:"durationSec,omitempty"`
}

type Job struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	Content  string  `gorm:"type:text;not null"`
	Language string  `gorm:"type:varchar(8);not null"`
	Title    *string `gorm:"type:varchar(200)"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when completed
	Result *Result `gorm:"serializer:json"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (Job) TableName() string { return "podcast_jobs" }

// JobEvent is the message handed to the task queue for one accepted job.
// The worker consumes it verbatim; no other coupling exists between the
// API and the synthesis pipeline.
type JobEvent struct {
	JobID    string `json:"jobId"`
	Content  string `json:"content"`
	Language string `json:"language"`
	Title    string `json:"title,omitempty"`
}
