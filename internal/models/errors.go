package models

import "fmt"

// ErrInvalidInstance is returned when an instance violates a structural
// invariant. Point is -1 when the problem is not tied to a single point.
type ErrInvalidInstance struct {
	Reason string
	Point  int
}

func (e *ErrInvalidInstance) Error() string {
	if e.Point >= 0 {
		return fmt.Sprintf("invalid instance: point %d: %s", e.Point, e.Reason)
	}
	return fmt.Sprintf("invalid instance: %s", e.Reason)
}
