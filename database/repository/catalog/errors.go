package catalogRepo

import "errors"

// ErrNotFound is returned when the requested catalog entry does not exist.
var ErrNotFound = errors.New("catalog entry not found")
