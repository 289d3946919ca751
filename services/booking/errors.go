package booking

import "errors"

var (
	// ErrVehicleInvalid means the vehicle is missing, inactive, not owned by
	// the driver, or not accepted by the space.
	ErrVehicleInvalid = errors.New("vehicle invalid")
	// ErrSpaceUnavailable means the space is missing or inactive.
	ErrSpaceUnavailable = errors.New("space unavailable")
	// ErrWindowUnavailable means every slot is taken for the requested window.
	ErrWindowUnavailable = errors.New("window unavailable")
	// ErrQuoteFailed means the pricing calculator could not produce a quote.
	ErrQuoteFailed = errors.New("quote failed")
	// ErrInvalidTransition means the booking is not in a state accepting the
	// requested operation.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrCheckoutWindowExceeded means a manual checkout arrived outside the
	// tolerance window; the booking belongs to the resolver now.
	ErrCheckoutWindowExceeded = errors.New("checkout window exceeded")
	// ErrNotAllowed is the single opaque authorization failure.
	ErrNotAllowed = errors.New("not allowed")
	// ErrValidation covers malformed input.
	ErrValidation = errors.New("validation failed")
)
