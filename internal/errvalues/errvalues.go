package errvalues

import "errors"

var (
	ErrNotFound       = errors.New("upload job not found")
	ErrStateConflict  = errors.New("job already in terminal or incompatible state")
	ErrValidation     = errors.New("invalid upload request")
	ErrPresign        = errors.New("presigning upload credentials failed")
	ErrFinalizeCommit = errors.New("object store rejected upload commit")
	ErrPartTransfer   = errors.New("part transfer failed")
)

// retryable marks part-transfer failures that a caller could retry with
// fresh credentials (expired URL, transient transport error), as opposed
// to a permanent rejection.
type retryable struct {
	err error
}

func (r *retryable) Error() string { return r.err.Error() }
func (r *retryable) Unwrap() error { return r.err }

// MarkRetryable wraps err so Retryable reports true for it.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryable{err: err}
}

// Retryable reports whether err was marked as retryable.
func Retryable(err error) bool {
	var r *retryable
	return errors.As(err, &r)
}
