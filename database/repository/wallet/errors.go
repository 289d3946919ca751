package walletRepo

import "errors"

var (
	// ErrNotFound is returned when no wallet exists for the owner.
	ErrNotFound = errors.New("wallet not found")
	// ErrVersionConflict is returned when a conditional save lost the race.
	ErrVersionConflict = errors.New("wallet version conflict")
)
