package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"photoflow/internal/errvalues"
)

// Doer is the http client interface, injectable for tests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FinalizeFunc is invoked once all parts of a file have been uploaded,
// with the integrity tags in part order. Typically wired to the upload
// service's complete endpoint.
type FinalizeFunc func(ctx context.Context, file *File, etags []string) error

// File is one file to transfer: the credentials from the init response
// plus a random-access view of the content so parts can be read
// independently.
type File struct {
	UploadID    uuid.UUID
	ObjectKey   string
	Filename    string
	ContentType string
	SizeBytes   int64
	PartSize    int64 // zero for single-part transfers
	MultipartID string
	URLs        []string
	Content     io.ReaderAt
}

// FileResult is the terminal outcome for one file.
type FileResult struct {
	UploadID uuid.UUID
	Filename string
	ETags    []string
	Err      error
}

// BatchResult aggregates per-file outcomes. Failure is isolated per
// file: one failed part fails only its own file.
type BatchResult struct {
	Results   []*FileResult
	Succeeded int
	Failed    int
}

// Coordinator drives a batch of direct-to-store transfers. Every file
// and every part within a file runs on its own goroutine, suspending at
// network I/O; there is deliberately no admission-control queue beyond
// what the transport provides.
type Coordinator struct {
	client   Doer
	finalize FinalizeFunc
	log      *slog.Logger
}

func NewCoordinator(client Doer, finalize FinalizeFunc, log *slog.Logger) *Coordinator {
	return &Coordinator{
		client:   client,
		finalize: finalize,
		log:      log,
	}
}

// Batch tracks the in-flight progress of one Run.
type Batch struct {
	files    []*File
	parts    [][]partProgress
	terminal []atomic.Bool
}

type partProgress struct {
	sent *atomic.Int64
	size int64
}

// NewBatch prepares progress tracking for a set of files.
func (c *Coordinator) NewBatch(files []*File) *Batch {
	b := &Batch{
		files:    files,
		parts:    make([][]partProgress, len(files)),
		terminal: make([]atomic.Bool, len(files)),
	}
	for i, f := range files {
		sizes := partSizes(f)
		b.parts[i] = make([]partProgress, len(sizes))
		for j, size := range sizes {
			b.parts[i][j] = partProgress{sent: &atomic.Int64{}, size: size}
		}
	}
	return b
}

// FileProgress is the mean of the file's part fractions. Parts share a
// fixed size, so equal weighting is exact except for the short tail part.
func (b *Batch) FileProgress(i int) float64 {
	parts := b.parts[i]
	if len(parts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range parts {
		if p.size == 0 {
			continue
		}
		frac := float64(p.sent.Load()) / float64(p.size)
		if frac > 1 {
			frac = 1
		}
		sum += frac
	}
	return sum / float64(len(parts))
}

// Progress is the fraction of files that reached a terminal outcome.
func (b *Batch) Progress() float64 {
	if len(b.files) == 0 {
		return 1
	}
	done := 0
	for i := range b.terminal {
		if b.terminal[i].Load() {
			done++
		}
	}
	return float64(done) / float64(len(b.files))
}

// Run transfers all files concurrently and blocks until every file has a
// terminal outcome. Files finalize independently as they finish.
func (c *Coordinator) Run(ctx context.Context, batch *Batch) *BatchResult {
	results := make([]*FileResult, len(batch.files))
	var wg sync.WaitGroup

	for i, file := range batch.files {
		wg.Add(1)
		go func(i int, file *File) {
			defer wg.Done()
			defer batch.terminal[i].Store(true)
			results[i] = c.transferFile(ctx, batch, i, file)
		}(i, file)
	}
	wg.Wait()

	result := &BatchResult{Results: results}
	for _, r := range results {
		if r.Err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	return result
}

// transferFile uploads every part of one file concurrently. The first
// part failure cancels the file's remaining parts and fails the whole
// file; sibling files are unaffected.
func (c *Coordinator) transferFile(ctx context.Context, batch *Batch, idx int, file *File) *FileResult {
	result := &FileResult{UploadID: file.UploadID, Filename: file.Filename}

	fileCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	etags := make([]string, len(file.URLs))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	var offset int64
	for part, url := range file.URLs {
		prog := batch.parts[idx][part]
		body := io.NewSectionReader(file.Content, offset, prog.size)
		offset += prog.size

		wg.Add(1)
		go func(part int, url string, body *io.SectionReader, prog partProgress) {
			defer wg.Done()
			etag, err := c.putPart(fileCtx, url, file.ContentType, body, prog)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancel()
				return
			}
			etags[part] = etag
		}(part, url, body, prog)
	}
	wg.Wait()

	if firstErr != nil {
		result.Err = fmt.Errorf("%w: %s: %w", errvalues.ErrPartTransfer, file.Filename, firstErr)
		c.log.Warn("file transfer failed", "uploadId", file.UploadID, "filename", file.Filename, "error", firstErr)
		return result
	}

	result.ETags = etags
	if c.finalize != nil {
		if err := c.finalize(ctx, file, etags); err != nil {
			result.Err = fmt.Errorf("finalize %s: %w", file.Filename, err)
			return result
		}
	}
	return result
}

// putPart PUTs one byte range to its signed URL and returns the
// integrity tag from the response.
func (c *Coordinator) putPart(ctx context.Context, url, contentType string, body *io.SectionReader, prog partProgress) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, &countingReader{r: body, sent: prog.sent})
	if err != nil {
		return "", err
	}
	req.ContentLength = prog.size
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errvalues.MarkRetryable(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("part upload rejected: status %d", resp.StatusCode)
		// An expired signed URL surfaces as 403; the caller could retry
		// with fresh credentials. Other rejections are permanent.
		if resp.StatusCode == http.StatusForbidden {
			return "", errvalues.MarkRetryable(err)
		}
		return "", err
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", fmt.Errorf("part upload response missing ETag")
	}
	return etag, nil
}

type countingReader struct {
	r    io.Reader
	sent *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.sent.Add(int64(n))
	}
	return n, err
}

// partSizes splits a file into its planned part lengths. Single-part
// files are one "part" spanning the whole body.
func partSizes(f *File) []int64 {
	if f.PartSize <= 0 || len(f.URLs) <= 1 {
		return []int64{f.SizeBytes}
	}
	sizes := make([]int64, len(f.URLs))
	remaining := f.SizeBytes
	for i := range sizes {
		if remaining > f.PartSize {
			sizes[i] = f.PartSize
		} else {
			sizes[i] = remaining
		}
		remaining -= sizes[i]
	}
	return sizes
}
