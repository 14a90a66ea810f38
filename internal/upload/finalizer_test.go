package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"photoflow/internal/errvalues"
	"photoflow/internal/models"
	"photoflow/internal/s3"
)

func newTestReconciler(s3Client *MockS3Client, jobs JobStore) *Reconciler {
	return NewReconciler(s3Client, jobs, "cdn.example.com", slog.New(slog.DiscardHandler))
}

func seedJob(t *testing.T, jobs *memJobStore, multipartID string) *models.UploadJob {
	t.Helper()
	job := &models.UploadJob{
		ID:                uuid.New(),
		Filename:          "photo.jpg",
		FileSizeBytes:     50_000_000,
		ContentType:       "image/jpeg",
		ObjectKey:         fmt.Sprintf("uploads/2026/08/31/%s.jpg", uuid.New()),
		MultipartUploadID: multipartID,
		Status:            models.StatusInitiated,
	}
	if err := jobs.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	return job
}

func completeRequest(job *models.UploadJob, tags int) *CompleteRequest {
	etags := make([]string, tags)
	for i := range etags {
		etags[i] = fmt.Sprintf("etag-%d", i+1)
	}
	return &CompleteRequest{
		UploadID:      job.ID,
		ObjectKey:     job.ObjectKey,
		Filename:      job.Filename,
		FileSizeBytes: job.FileSizeBytes,
		ContentType:   job.ContentType,
		MultipartID:   job.MultipartUploadID,
		PartETags:     etags,
	}
}

func TestReconciler_Complete_Multipart(t *testing.T) {
	var gotParts []s3.PartInfo
	s3Client := &MockS3Client{
		completeMultipartUploadFunc: func(ctx context.Context, key, uploadID string, parts []s3.PartInfo) error {
			gotParts = parts
			return nil
		},
	}
	jobs := newMemJobStore()
	reconciler := newTestReconciler(s3Client, jobs)
	job := seedJob(t, jobs, "mp-123")

	resp, err := reconciler.Complete(context.Background(), completeRequest(job, 10))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if len(gotParts) != 10 {
		t.Fatalf("expected 10 parts in S3 commit, got %d", len(gotParts))
	}
	for i, p := range gotParts {
		if p.PartNumber != i+1 {
			t.Errorf("part %d has number %d, tags must stay in part order", i, p.PartNumber)
		}
	}

	if resp.Status != string(models.StatusCompleted) {
		t.Errorf("response status = %s, expected COMPLETED", resp.Status)
	}
	if resp.PhotoID == uuid.Nil {
		t.Error("expected a photo id in the response")
	}
	if resp.PublicURL != "https://cdn.example.com/"+job.ObjectKey {
		t.Errorf("unexpected public URL %s", resp.PublicURL)
	}

	stored, err := jobs.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.StatusCompleted {
		t.Errorf("job status = %s, expected COMPLETED", stored.Status)
	}
	if stored.Progress != 100 {
		t.Errorf("job progress = %d, expected 100", stored.Progress)
	}
}

func TestReconciler_Complete_CommitRejected(t *testing.T) {
	s3Client := &MockS3Client{
		completeMultipartUploadFunc: func(ctx context.Context, key, uploadID string, parts []s3.PartInfo) error {
			if len(parts) != 10 {
				return fmt.Errorf("part count mismatch: got %d, session has 10", len(parts))
			}
			return nil
		},
	}
	jobs := newMemJobStore()
	reconciler := newTestReconciler(s3Client, jobs)
	job := seedJob(t, jobs, "mp-123")

	// 9 tags for a 10-part session
	_, err := reconciler.Complete(context.Background(), completeRequest(job, 9))
	if !errors.Is(err, errvalues.ErrFinalizeCommit) {
		t.Fatalf("expected ErrFinalizeCommit, got %v", err)
	}

	stored, err := jobs.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status.Terminal() {
		t.Errorf("job must stay non-terminal after a rejected commit, got %s", stored.Status)
	}
	if len(jobs.photos) != 0 {
		t.Error("no photo may be created when the commit is rejected")
	}

	// Retrying with the full tag set succeeds.
	if _, err := reconciler.Complete(context.Background(), completeRequest(job, 10)); err != nil {
		t.Fatalf("retry with correct tags failed: %v", err)
	}
}

func TestReconciler_Complete_Idempotent(t *testing.T) {
	s3Client := &MockS3Client{}
	jobs := newMemJobStore()
	reconciler := newTestReconciler(s3Client, jobs)
	job := seedJob(t, jobs, "mp-123")

	first, err := reconciler.Complete(context.Background(), completeRequest(job, 10))
	if err != nil {
		t.Fatalf("first Complete() error = %v", err)
	}
	second, err := reconciler.Complete(context.Background(), completeRequest(job, 10))
	if err != nil {
		t.Fatalf("second Complete() must not fail, got %v", err)
	}

	if second.PhotoID != first.PhotoID {
		t.Errorf("repeat complete returned photo %s, expected original %s", second.PhotoID, first.PhotoID)
	}
	if len(jobs.photos) != 1 {
		t.Errorf("exactly one photo must exist per object key, found %d", len(jobs.photos))
	}
}

func TestReconciler_Complete_SinglePart(t *testing.T) {
	s3Client := &MockS3Client{}
	jobs := newMemJobStore()
	reconciler := newTestReconciler(s3Client, jobs)
	job := seedJob(t, jobs, "") // no multipart session

	resp, err := reconciler.Complete(context.Background(), completeRequest(job, 1))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got := s3Client.completeCalls.Load(); got != 0 {
		t.Errorf("single-part complete must not touch the multipart API, saw %d calls", got)
	}
	if resp.Status != string(models.StatusCompleted) {
		t.Errorf("response status = %s, expected COMPLETED", resp.Status)
	}
}

func TestReconciler_Complete_NoTags(t *testing.T) {
	reconciler := newTestReconciler(&MockS3Client{}, newMemJobStore())

	_, err := reconciler.Complete(context.Background(), &CompleteRequest{UploadID: uuid.New(), ObjectKey: "k"})
	if !errors.Is(err, errvalues.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty partTags, got %v", err)
	}
}

func TestReconciler_Abort_Multipart(t *testing.T) {
	var abortedKey, abortedID string
	s3Client := &MockS3Client{
		abortMultipartUploadFunc: func(ctx context.Context, key, uploadID string) error {
			abortedKey, abortedID = key, uploadID
			return nil
		},
	}
	jobs := newMemJobStore()
	reconciler := newTestReconciler(s3Client, jobs)
	job := seedJob(t, jobs, "mp-123")

	if err := reconciler.Abort(context.Background(), job.ID); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}

	if abortedKey != job.ObjectKey || abortedID != "mp-123" {
		t.Errorf("aborted session (%s, %s), expected (%s, mp-123)", abortedKey, abortedID, job.ObjectKey)
	}

	stored, err := jobs.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.StatusAborted {
		t.Errorf("job status = %s, expected ABORTED", stored.Status)
	}
}

func TestReconciler_Abort_NoSessionSkipsS3(t *testing.T) {
	s3Client := &MockS3Client{}
	jobs := newMemJobStore()
	reconciler := newTestReconciler(s3Client, jobs)
	job := seedJob(t, jobs, "")

	if err := reconciler.Abort(context.Background(), job.ID); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}
	if got := s3Client.abortCalls.Load(); got != 0 {
		t.Errorf("abort without a session must make no object-store call, saw %d", got)
	}

	stored, _ := jobs.Get(context.Background(), job.ID)
	if stored.Status != models.StatusAborted {
		t.Errorf("job status = %s, expected ABORTED", stored.Status)
	}
}

func TestReconciler_Abort_NotFound(t *testing.T) {
	reconciler := newTestReconciler(&MockS3Client{}, newMemJobStore())

	err := reconciler.Abort(context.Background(), uuid.New())
	if !errors.Is(err, errvalues.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReconciler_Abort_LosesRaceToFinalize(t *testing.T) {
	s3Client := &MockS3Client{}
	jobs := newMemJobStore()
	reconciler := newTestReconciler(s3Client, jobs)
	job := seedJob(t, jobs, "mp-123")

	if _, err := reconciler.Complete(context.Background(), completeRequest(job, 10)); err != nil {
		t.Fatal(err)
	}

	// The finalize already won; abort must not flip the terminal status.
	if err := reconciler.Abort(context.Background(), job.ID); err != nil {
		t.Fatalf("losing the race is not an error, got %v", err)
	}

	stored, _ := jobs.Get(context.Background(), job.ID)
	if stored.Status != models.StatusCompleted {
		t.Errorf("terminal status must stand, got %s", stored.Status)
	}
}
