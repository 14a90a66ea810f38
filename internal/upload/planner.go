package upload

import (
	"fmt"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"photoflow/internal/config"
	"photoflow/internal/errvalues"
)

// Plan is the transfer strategy for one file: a single PUT, or
// NumberOfParts fixed-size parts uploaded independently.
type Plan struct {
	Multipart     bool
	PartSize      int64
	NumberOfParts int
}

// Planner decides the transfer strategy from declared file metadata.
// Pure and deterministic given the upload config; no I/O.
type Planner struct {
	cfg *config.UploadConfig
}

func NewPlanner(cfg *config.UploadConfig) *Planner {
	return &Planner{cfg: cfg}
}

func (p *Planner) Plan(filename string, sizeBytes int64, contentType string) (*Plan, error) {
	if err := p.validate(filename, sizeBytes, contentType); err != nil {
		return nil, err
	}

	// A file exactly at the threshold is still a single PUT
	if sizeBytes <= p.cfg.MultipartThresholdBytes {
		return &Plan{Multipart: false, NumberOfParts: 1}, nil
	}

	numberOfParts := int(math.Ceil(float64(sizeBytes) / float64(p.cfg.PartSizeBytes)))
	return &Plan{
		Multipart:     true,
		PartSize:      p.cfg.PartSizeBytes,
		NumberOfParts: numberOfParts,
	}, nil
}

func (p *Planner) validate(filename string, sizeBytes int64, contentType string) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("%w: filename is required", errvalues.ErrValidation)
	}
	if path.Ext(filename) == "" {
		return fmt.Errorf("%w: filename has no extension: %s", errvalues.ErrValidation, filename)
	}
	if sizeBytes <= 0 {
		return fmt.Errorf("%w: fileSizeBytes must be greater than 0", errvalues.ErrValidation)
	}
	if sizeBytes > p.cfg.MaxFileSizeBytes {
		return fmt.Errorf("%w: file size exceeds maximum: %d > %d", errvalues.ErrValidation, sizeBytes, p.cfg.MaxFileSizeBytes)
	}
	if !p.isMimeAllowed(contentType) {
		return fmt.Errorf("%w: content type not allowed: %s", errvalues.ErrValidation, contentType)
	}
	return nil
}

func (p *Planner) isMimeAllowed(mime string) bool {
	for _, allowed := range p.cfg.AllowedMimes {
		if mime == allowed {
			return true
		}
	}
	return false
}

// ObjectKey derives the destination key from the upload id, a date
// partition and the original file extension. Globally unique because the
// upload id is.
func ObjectKey(uploadID uuid.UUID, filename string, now time.Time) string {
	return fmt.Sprintf("uploads/%s/%s%s", now.UTC().Format("2006/01/02"), uploadID, path.Ext(filename))
}
