package storage

import "errors"

// ErrNotFound is returned (wrapped) by write paths when the target record does not exist.
var ErrNotFound = errors.New("not found")
