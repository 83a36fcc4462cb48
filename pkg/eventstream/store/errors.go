package store

import "errors"

// ErrNoDriver is returned when no storage driver is provided.
var ErrNoDriver = errors.New("storage publisher requires a driver")
