package upload

import (
	"context"
	"time"

	"github.com/google/uuid"

	"photoflow/internal/models"
	"photoflow/internal/s3"
)

// S3Client interface for dependency injection and testing
type S3Client interface {
	PresignPutObject(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error)
	PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32, expires time.Duration) (string, error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []s3.PartInfo) error
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
}

// JobStore is the durable record store for upload jobs.
// Create must not return before the record is visible to any reader.
type JobStore interface {
	Create(ctx context.Context, job *models.UploadJob) error
	Get(ctx context.Context, id uuid.UUID) (*models.UploadJob, error)
	Transition(ctx context.Context, id uuid.UUID, from []models.JobStatus, to models.JobStatus, errMsg string) error
	FinalizePhoto(ctx context.Context, jobID uuid.UUID, objectKey, filename string, sizeBytes int64, mimeType string) (*models.Photo, error)
}
