package domain

import "errors"

// ErrNotFound is wrapped by every lookup that misses.
var ErrNotFound = errors.New("not found")
