package resolver

import "errors"

var (
	// ErrNotStalled means the booking is not in a state the resolver handles.
	ErrNotStalled = errors.New("booking not stalled")
	// ErrInvalidResolution means the requested resolution is not allowed for
	// the booking's classification.
	ErrInvalidResolution = errors.New("invalid resolution")
	// ErrNotAllowed is the opaque authorization failure.
	ErrNotAllowed = errors.New("not allowed")
)
