package upload

import (
	"time"

	"github.com/google/uuid"
)

// InitRequest represents the request to initialize an upload
type InitRequest struct {
	Filename      string `json:"filename"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
	ContentType   string `json:"contentType"`
}

// InitResponse carries the presigned URLs for a direct-to-store upload
type InitResponse struct {
	UploadID         uuid.UUID `json:"uploadId"`
	ObjectKey        string    `json:"objectKey"`
	Multipart        bool      `json:"multipart"`
	MultipartID      string    `json:"multipartUploadId,omitempty"`
	PartSize         int64     `json:"partSize,omitempty"`
	NumberOfParts    int       `json:"numberOfParts,omitempty"`
	PresignedURLs    []string  `json:"presignedUrls"`
	ExpiresInMinutes int       `json:"expiresInMinutes"`
}

// CompleteRequest finalizes an upload. All metadata is supplied again by
// the caller (from the init response) rather than re-read from the store.
type CompleteRequest struct {
	UploadID      uuid.UUID `json:"uploadId"`
	ObjectKey     string    `json:"objectKey"`
	Filename      string    `json:"filename"`
	FileSizeBytes int64     `json:"fileSizeBytes"`
	ContentType   string    `json:"contentType"`
	MultipartID   string    `json:"multipartUploadId,omitempty"`
	PartETags     []string  `json:"partTags"`
}

// CompleteResponse represents the finalized upload
type CompleteResponse struct {
	UploadID  uuid.UUID `json:"uploadId"`
	Status    string    `json:"status"`
	PhotoID   uuid.UUID `json:"photoId"`
	PublicURL string    `json:"publicUrl"`
	Filename  string    `json:"filename"`
}

// StatusResponse is a point-in-time snapshot of one upload job
type StatusResponse struct {
	UploadID    uuid.UUID  `json:"uploadId"`
	Filename    string     `json:"filename"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// BatchStatusRequest is the wrapped form of the batch status body; the
// endpoint also takes a bare JSON array of ids.
type BatchStatusRequest struct {
	UploadIDs []uuid.UUID `json:"uploadIds"`
}

// ErrorResponse represents error responses from the upload API
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Standard error codes
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeMimeNotAllowed = "mime_not_allowed"
	ErrCodeSizeTooLarge   = "size_too_large"
	ErrCodePresignFailed  = "presign_failed"
	ErrCodeCommitFailed   = "commit_failed"
	ErrCodeNotFound       = "not_found"
	ErrCodeInternal       = "internal_error"
)
