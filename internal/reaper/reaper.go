package reaper

import (
	"context"
	"log/slog"
	"time"
)

// Store is the slice of the job store the reaper needs.
type Store interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reaper periodically deletes jobs stuck in a non-terminal state past the
// stale timeout, bounding storage growth from abandoned uploads. Bytes
// already sitting in the object store are not cleaned up here.
type Reaper struct {
	store        Store
	interval     time.Duration
	staleTimeout time.Duration
	log          *slog.Logger
}

func New(store Store, interval, staleTimeout time.Duration, log *slog.Logger) *Reaper {
	return &Reaper{
		store:        store,
		interval:     interval,
		staleTimeout: staleTimeout,
		log:          log,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one reap pass.
func (r *Reaper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.staleTimeout)
	reaped, err := r.store.DeleteStale(ctx, cutoff)
	if err != nil {
		r.log.Error("reap sweep failed", "error", err)
		return
	}
	if reaped > 0 {
		r.log.Info("reaped stale upload jobs", "count", reaped, "olderThan", r.staleTimeout)
	}
}
