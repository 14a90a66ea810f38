package jobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"photoflow/internal/errvalues"
	"photoflow/internal/models"
)

const queryTimeout = 10 * time.Second

// PgConnection is the subset of pgxpool.Pool the store needs, injectable
// for tests.
type PgConnection interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the durable record of upload jobs and finalized photos,
// backed by Postgres. Every write commits before the call returns, so a
// created job is visible to any subsequent reader; there is no cache
// layer in front of it.
type Store struct {
	conn PgConnection
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{conn: p}, nil
}

func NewWithConn(conn PgConnection) *Store {
	return &Store{conn: conn}
}

// Create inserts the job record. pgx executes against Postgres
// synchronously, so the row is durably visible to any caller the moment
// Create returns; a finalize request racing the init response can never
// observe "not found".
func (s *Store) Create(ctx context.Context, job *models.UploadJob) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.conn.Exec(ctx, `INSERT INTO upload_jobs
		(id, filename, file_size_bytes, content_type, object_key, multipart_upload_id, status, progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, 0, now(), now());`,
		job.ID, job.Filename, job.FileSizeBytes, job.ContentType, job.ObjectKey, job.MultipartUploadID, string(job.Status))
	if err != nil {
		return fmt.Errorf("error creating upload job: %w", err)
	}
	return nil
}

// Get reads one job straight from Postgres.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.UploadJob, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := s.conn.QueryRow(ctx, `SELECT id, filename, file_size_bytes, content_type, object_key,
		multipart_upload_id, status, progress, photo_id, error_message, created_at, completed_at
		FROM upload_jobs WHERE id = $1;`, id)

	var job models.UploadJob
	var multipartID, errMsg *string
	var photoID *uuid.UUID
	var completedAt *time.Time
	var status string
	err := row.Scan(&job.ID, &job.Filename, &job.FileSizeBytes, &job.ContentType, &job.ObjectKey,
		&multipartID, &status, &job.Progress, &photoID, &errMsg, &job.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errvalues.ErrNotFound
		}
		return nil, fmt.Errorf("error getting upload job: %w", err)
	}

	job.Status = models.JobStatus(status)
	if multipartID != nil {
		job.MultipartUploadID = *multipartID
	}
	if errMsg != nil {
		job.ErrorMessage = *errMsg
	}
	if photoID != nil {
		job.PhotoID = *photoID
	}
	if completedAt != nil {
		job.CompletedAt = *completedAt
	}
	return &job, nil
}

// Transition moves a job from any of the allowed states to the target
// state in a single compare-and-set update. If the current status is not
// in the allowed set the row is untouched and ErrStateConflict is
// returned, which makes finalize and abort safe to retry or race.
func (s *Store) Transition(ctx context.Context, id uuid.UUID, from []models.JobStatus, to models.JobStatus, errMsg string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var ct pgconn.CommandTag
	var err error
	if to.Terminal() {
		ct, err = s.conn.Exec(ctx, `UPDATE upload_jobs
			SET status = $1, error_message = NULLIF($2, ''), completed_at = now(), updated_at = now()
			WHERE id = $3 AND status = ANY($4);`,
			string(to), errMsg, id, statusStrings(from))
	} else {
		ct, err = s.conn.Exec(ctx, `UPDATE upload_jobs
			SET status = $1, updated_at = now()
			WHERE id = $2 AND status = ANY($3);`,
			string(to), id, statusStrings(from))
	}
	if err != nil {
		return fmt.Errorf("error transitioning upload job: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return nil
}

// FinalizePhoto creates the photo record and flips the job to COMPLETED
// as one transaction. Exactly one photo can exist per object key; when
// the compare-and-set finds the job already terminal, the photo for the
// key (ours or the racing winner's) is returned together with
// ErrStateConflict so the caller can treat the call as idempotent.
func (s *Store) FinalizePhoto(ctx context.Context, jobID uuid.UUID, objectKey, filename string, sizeBytes int64, mimeType string) (*models.Photo, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error starting tx: %w", err)
	}
	defer tx.Rollback(ctx)

	photo := models.Photo{
		ID:        uuid.New(),
		ObjectKey: objectKey,
		Filename:  filename,
		SizeBytes: sizeBytes,
		MimeType:  mimeType,
	}
	row := tx.QueryRow(ctx, `INSERT INTO photos (id, object_key, filename, size_bytes, mime_type, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (object_key) DO NOTHING
		RETURNING id, created_at;`,
		photo.ID, photo.ObjectKey, photo.Filename, photo.SizeBytes, photo.MimeType)
	err = row.Scan(&photo.ID, &photo.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// A photo already exists for this key; reuse it.
		row = tx.QueryRow(ctx, `SELECT id, filename, size_bytes, mime_type, created_at FROM photos WHERE object_key = $1;`, objectKey)
		err = row.Scan(&photo.ID, &photo.Filename, &photo.SizeBytes, &photo.MimeType, &photo.CreatedAt)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating photo: %w", err)
	}

	ct, err := tx.Exec(ctx, `UPDATE upload_jobs
		SET status = $1, progress = 100, photo_id = $2, completed_at = now(), updated_at = now()
		WHERE id = $3 AND status = ANY($4);`,
		string(models.StatusCompleted), photo.ID, jobID, statusStrings(models.NonTerminalStatuses))
	if err != nil {
		return nil, fmt.Errorf("error updating upload job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return &photo, errvalues.ErrStateConflict
	}
	return &photo, nil
}

// DeleteStale removes non-terminal jobs created before the cutoff.
// No photo can exist for a non-terminal job, so deletion orphans nothing
// in the database.
func (s *Store) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := s.conn.Exec(ctx, `DELETE FROM upload_jobs WHERE status = ANY($1) AND created_at < $2;`,
		statusStrings(models.NonTerminalStatuses), cutoff)
	if err != nil {
		return 0, fmt.Errorf("error reaping stale jobs: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (s *Store) conflictOrNotFound(ctx context.Context, id uuid.UUID) error {
	var one int
	err := s.conn.QueryRow(ctx, `SELECT 1 FROM upload_jobs WHERE id = $1;`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return errvalues.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error checking upload job: %w", err)
	}
	return errvalues.ErrStateConflict
}

func statusStrings(statuses []models.JobStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
