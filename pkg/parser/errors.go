package parser

import "errors"

// ErrFinalized is returned when input is fed to a session after Finalize.
var ErrFinalized = errors.New("parser session already finalized")
