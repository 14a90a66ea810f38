package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"photoflow/internal/errvalues"
)

// Credentials are the time-limited signed URLs for one planned transfer.
// For multipart transfers URLs[i] uploads part i+1.
type Credentials struct {
	MultipartUploadID string
	URLs              []string
}

// Issuer turns a plan into presigned upload URLs. For multipart plans it
// opens the session first, then presigns every part URL concurrently.
// Issuance is all-or-nothing: a partial credential set is never returned.
type Issuer struct {
	s3Client S3Client
	urlTTL   time.Duration
}

func NewIssuer(s3Client S3Client, urlTTL time.Duration) *Issuer {
	return &Issuer{s3Client: s3Client, urlTTL: urlTTL}
}

func (i *Issuer) Issue(ctx context.Context, objectKey, contentType string, plan *Plan) (*Credentials, error) {
	if !plan.Multipart {
		url, err := i.s3Client.PresignPutObject(ctx, objectKey, contentType, i.urlTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: presign put: %v", errvalues.ErrPresign, err)
		}
		return &Credentials{URLs: []string{url}}, nil
	}

	uploadID, err := i.s3Client.CreateMultipartUpload(ctx, objectKey, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: create multipart upload: %v", errvalues.ErrPresign, err)
	}

	// Each presign is an independent I/O-bound call; fan them all out at
	// once so issuance stays fast for 10+ parts.
	urls := make([]string, plan.NumberOfParts)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for part := 1; part <= plan.NumberOfParts; part++ {
		wg.Add(1)
		go func(partNumber int) {
			defer wg.Done()
			url, err := i.s3Client.PresignUploadPart(ctx, objectKey, uploadID, int32(partNumber), i.urlTTL)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			urls[partNumber-1] = url
		}(part)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("%w: presign part: %v", errvalues.ErrPresign, firstErr)
	}

	return &Credentials{MultipartUploadID: uploadID, URLs: urls}, nil
}

// Revoke closes the multipart session behind credentials that were issued
// but never handed to a caller. Without this a session opened for a job
// that failed to record would sit on the object store until its own
// lifecycle policy expires it.
func (i *Issuer) Revoke(ctx context.Context, objectKey string, creds *Credentials) error {
	if creds == nil || creds.MultipartUploadID == "" {
		return nil
	}
	return i.s3Client.AbortMultipartUpload(ctx, objectKey, creds.MultipartUploadID)
}
