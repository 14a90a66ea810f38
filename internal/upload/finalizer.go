package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"photoflow/internal/errvalues"
	"photoflow/internal/models"
	"photoflow/internal/s3"
)

// Reconciler finalizes or aborts uploads. Complete commits the object
// store transfer and records the resulting photo plus the terminal job
// status as one atomic unit; racing calls converge to one photo and one
// terminal status through the store's compare-and-set transition.
type Reconciler struct {
	s3Client  S3Client
	jobs      JobStore
	cdnDomain string
	log       *slog.Logger
}

func NewReconciler(s3Client S3Client, jobs JobStore, cdnDomain string, log *slog.Logger) *Reconciler {
	return &Reconciler{
		s3Client:  s3Client,
		jobs:      jobs,
		cdnDomain: cdnDomain,
		log:       log,
	}
}

// Complete finalizes an upload from caller-supplied metadata and the
// ordered part ETags. Idempotent: a repeat call for an already-completed
// job returns the original photo.
func (r *Reconciler) Complete(ctx context.Context, req *CompleteRequest) (*CompleteResponse, error) {
	if len(req.PartETags) == 0 {
		return nil, fmt.Errorf("%w: partTags is required", errvalues.ErrValidation)
	}

	// Optimistic marker only; a retry or racing abort makes this a no-op.
	if err := r.jobs.Transition(ctx, req.UploadID, []models.JobStatus{models.StatusInitiated}, models.StatusCompleting, ""); err != nil {
		if errors.Is(err, errvalues.ErrNotFound) {
			return nil, err
		}
		r.log.Debug("completing transition skipped", "uploadId", req.UploadID, "error", err)
	}

	if req.MultipartID != "" {
		parts := make([]s3.PartInfo, len(req.PartETags))
		for i, tag := range req.PartETags {
			parts[i] = s3.PartInfo{PartNumber: i + 1, ETag: tag}
		}
		// S3 rejects the commit when tags or part count do not match the
		// session; the job stays non-terminal and the caller may retry.
		if err := r.s3Client.CompleteMultipartUpload(ctx, req.ObjectKey, req.MultipartID, parts); err != nil {
			return nil, fmt.Errorf("%w: %v", errvalues.ErrFinalizeCommit, err)
		}
	}

	photo, err := r.jobs.FinalizePhoto(ctx, req.UploadID, req.ObjectKey, req.Filename, req.FileSizeBytes, req.ContentType)
	if err != nil {
		if errors.Is(err, errvalues.ErrStateConflict) && photo != nil {
			// The file body is durably committed and a photo exists for
			// this object key; the racing writer's terminal status stands.
			r.log.Warn("job not in eligible state at finalize, returning existing photo",
				"uploadId", req.UploadID, "photoId", photo.ID)
		} else {
			return nil, err
		}
	}

	r.log.Info("upload finalized", "uploadId", req.UploadID, "photoId", photo.ID)

	return &CompleteResponse{
		UploadID:  req.UploadID,
		Status:    string(models.StatusCompleted),
		PhotoID:   photo.ID,
		PublicURL: fmt.Sprintf("https://%s/%s", r.cdnDomain, req.ObjectKey),
		Filename:  req.Filename,
	}, nil
}

// Abort cancels an upload: the multipart session (if any) is aborted on
// the object store, then the job moves to ABORTED from any non-terminal
// state. Losing the transition race to a finalize is not an error; the
// winner's terminal status is authoritative.
func (r *Reconciler) Abort(ctx context.Context, uploadID uuid.UUID) error {
	job, err := r.jobs.Get(ctx, uploadID)
	if err != nil {
		return err
	}

	if job.MultipartUploadID != "" {
		if err := r.s3Client.AbortMultipartUpload(ctx, job.ObjectKey, job.MultipartUploadID); err != nil {
			return fmt.Errorf("abort multipart upload: %w", err)
		}
	}

	err = r.jobs.Transition(ctx, uploadID, models.NonTerminalStatuses, models.StatusAborted, "upload aborted by user")
	if errors.Is(err, errvalues.ErrStateConflict) {
		r.log.Warn("abort raced a terminal transition", "uploadId", uploadID)
		return nil
	}
	if err != nil {
		return err
	}

	r.log.Info("upload aborted", "uploadId", uploadID)
	return nil
}
