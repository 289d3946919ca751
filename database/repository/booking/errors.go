package bookingRepo

import "errors"

var (
	// ErrNotFound is returned when no booking matches the query.
	ErrNotFound = errors.New("booking not found")
	// ErrVersionConflict is returned when a conditional update lost the race.
	ErrVersionConflict = errors.New("booking version conflict")
)
