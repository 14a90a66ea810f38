package upload

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"photoflow/internal/config"
	"photoflow/internal/models"
)

// Service orchestrates upload initialization and status reads. The
// transfer itself happens client-to-store; the service only plans, issues
// credentials and records.
type Service struct {
	planner *Planner
	issuer  *Issuer
	jobs    JobStore
	cfg     *config.UploadConfig
	log     *slog.Logger
}

func NewService(planner *Planner, issuer *Issuer, jobs JobStore, cfg *config.UploadConfig, log *slog.Logger) *Service {
	return &Service{
		planner: planner,
		issuer:  issuer,
		jobs:    jobs,
		cfg:     cfg,
		log:     log,
	}
}

// Init plans the transfer, issues credentials and durably records the job.
// The job row is committed before Init returns, so a complete request that
// arrives immediately after can never observe "not found". No record is
// created when issuance fails.
func (s *Service) Init(ctx context.Context, req *InitRequest) (*InitResponse, error) {
	plan, err := s.planner.Plan(req.Filename, req.FileSizeBytes, req.ContentType)
	if err != nil {
		return nil, err
	}

	uploadID := uuid.New()
	objectKey := ObjectKey(uploadID, req.Filename, time.Now())

	creds, err := s.issuer.Issue(ctx, objectKey, req.ContentType, plan)
	if err != nil {
		return nil, err
	}

	job := &models.UploadJob{
		ID:                uploadID,
		Filename:          req.Filename,
		FileSizeBytes:     req.FileSizeBytes,
		ContentType:       req.ContentType,
		ObjectKey:         objectKey,
		MultipartUploadID: creds.MultipartUploadID,
		Status:            models.StatusInitiated,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		// Best effort; no record references the session, so it would
		// otherwise leak on the object store.
		if revokeErr := s.issuer.Revoke(ctx, objectKey, creds); revokeErr != nil {
			s.log.Warn("revoking credentials after failed create", "uploadId", uploadID, "error", revokeErr)
		}
		return nil, err
	}

	s.log.Info("upload initialized",
		"uploadId", uploadID,
		"objectKey", objectKey,
		"multipart", plan.Multipart,
		"parts", plan.NumberOfParts)

	resp := &InitResponse{
		UploadID:         uploadID,
		ObjectKey:        objectKey,
		Multipart:        plan.Multipart,
		MultipartID:      creds.MultipartUploadID,
		PresignedURLs:    creds.URLs,
		ExpiresInMinutes: s.cfg.URLTTLMinutes,
	}
	if plan.Multipart {
		resp.PartSize = plan.PartSize
		resp.NumberOfParts = plan.NumberOfParts
	}
	return resp, nil
}

// Status returns a snapshot of one upload job.
func (s *Service) Status(ctx context.Context, uploadID uuid.UUID) (*StatusResponse, error) {
	job, err := s.jobs.Get(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return snapshot(job), nil
}

// BatchStatus looks up many jobs concurrently. Ids that error are omitted
// from the result rather than failing the whole batch.
func (s *Service) BatchStatus(ctx context.Context, uploadIDs []uuid.UUID) []*StatusResponse {
	results := make([]*StatusResponse, len(uploadIDs))
	var wg sync.WaitGroup

	for i, id := range uploadIDs {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			job, err := s.jobs.Get(ctx, id)
			if err != nil {
				s.log.Warn("batch status lookup failed", "uploadId", id, "error", err)
				return
			}
			results[i] = snapshot(job)
		}(i, id)
	}
	wg.Wait()

	statuses := make([]*StatusResponse, 0, len(uploadIDs))
	for _, r := range results {
		if r != nil {
			statuses = append(statuses, r)
		}
	}
	return statuses
}

func snapshot(job *models.UploadJob) *StatusResponse {
	resp := &StatusResponse{
		UploadID:  job.ID,
		Filename:  job.Filename,
		Status:    string(job.Status),
		Progress:  job.Progress,
		CreatedAt: job.CreatedAt,
	}
	if !job.CompletedAt.IsZero() {
		t := job.CompletedAt
		resp.CompletedAt = &t
	}
	return resp
}
