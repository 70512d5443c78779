package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// The engine's error taxonomy. SlotConflict and insufficient funds (from
// the ledger package) are expected, user-recoverable outcomes; handlers
// must keep them distinguishable from internal failures.
var (
	ErrSlotIllegal       = errors.New("slot outside bookable hours or advance-notice buffer")
	ErrSlotConflict      = errors.New("slot already booked")
	ErrModificationLimit = errors.New("modification limit reached")
	ErrTooCloseToStart   = errors.New("too close to booking start")
	ErrInvalidTransition = errors.New("invalid booking state transition")
	ErrNotFound          = errors.New("booking not found")
)

// ValidationError rejects a malformed request before the store is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports which requested courts were not free.
type ConflictError struct {
	CourtIDs []int64
}

func (e ConflictError) Error() string {
	labels := make([]string, len(e.CourtIDs))
	for i, id := range e.CourtIDs {
		labels[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("courts unavailable: %s", strings.Join(labels, ", "))
}

func (e ConflictError) Is(target error) bool { return target == ErrSlotConflict }
