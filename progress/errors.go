package progress

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the user exists but has never logged a reading.
	ErrNotFound = errors.New("progress not found")
	// ErrUnknownUser means the identity does not exist at all.
	ErrUnknownUser = errors.New("unknown user")
	// ErrPersistenceTimeout means a load or save ran past its deadline. Progress is unchanged.
	ErrPersistenceTimeout = errors.New("progress persistence timed out")
	// ErrConflict means another writer saved a newer version first.
	ErrConflict = errors.New("progress was modified concurrently")
	// ErrHistoryRewrite means a save would drop or reorder stored readings.
	ErrHistoryRewrite = errors.New("reading history is append-only")
)

// PersistenceError wraps a failure of the underlying store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("progress %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// timeoutOr collapses deadline expiry into ErrPersistenceTimeout and leaves
// every other error as it is.
func timeoutOr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrPersistenceTimeout
	}
	return err
}
