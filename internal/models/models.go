package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks the lifecycle of an upload job.
// INITIATED -> COMPLETING -> {COMPLETED | FAILED | ABORTED}.
// Terminal states are final.
type JobStatus string

const (
	StatusInitiated  JobStatus = "INITIATED"
	StatusCompleting JobStatus = "COMPLETING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
	StatusAborted    JobStatus = "ABORTED"
)

// Terminal reports whether no further transition is permitted from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusAborted
}

// NonTerminalStatuses are the states a job can still transition out of.
var NonTerminalStatuses = []JobStatus{StatusInitiated, StatusCompleting}

// UploadJob is the durable record of one file being transferred
// directly to the object store. Created before any bytes move.
type UploadJob struct {
	ID                uuid.UUID
	Filename          string
	FileSizeBytes     int64
	ContentType       string
	ObjectKey         string
	MultipartUploadID string // empty for single-part uploads
	Status            JobStatus
	Progress          int // 0-100
	PhotoID           uuid.UUID
	ErrorMessage      string
	CreatedAt         time.Time
	CompletedAt       time.Time
}

// Photo is the finalized artifact created when an upload job completes.
// Exactly one photo exists per object key, and only for COMPLETED jobs.
type Photo struct {
	ID        uuid.UUID
	ObjectKey string
	Filename  string
	SizeBytes int64
	MimeType  string
	CreatedAt time.Time
}

// BatchSummary aggregates a set of upload jobs submitted together.
// Derived from the jobs themselves, never stored.
type BatchSummary struct {
	Pending        int
	Completed      int
	Failed         int
	TotalSizeBytes int64
}

// Summarize reconstructs a batch summary from its member jobs.
func Summarize(jobs []*UploadJob) BatchSummary {
	var s BatchSummary
	for _, j := range jobs {
		switch j.Status {
		case StatusCompleted:
			s.Completed++
		case StatusFailed, StatusAborted:
			s.Failed++
		default:
			s.Pending++
		}
		s.TotalSizeBytes += j.FileSizeBytes
	}
	return s
}
