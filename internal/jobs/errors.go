package jobs

import (
	"errors"
	"fmt"

	"clipforge/internal/services"
)

var (
	// ErrIllegalTransition is returned when a commit would move a job along
	// an edge that is not in the status graph.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrInvariant is returned when a commit would break a write-once or
	// append-only field.
	ErrInvariant = errors.New("job invariant violated")
	// ErrExists is returned by Create for a duplicate id.
	ErrExists = errors.New("job already exists")
)

// ErrNotFound reports an unknown job id. It matches services.ErrNotFound.
type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string { return fmt.Sprintf("job %s not found", e.ID) }

func (e *ErrNotFound) Is(target error) bool { return target == services.ErrNotFound }

func invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
