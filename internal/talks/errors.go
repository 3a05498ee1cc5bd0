package talks

import "errors"

var (
	// ErrNotFound indicates no talk matches the given id for the user.
	ErrNotFound = errors.New("talk not found")
	// ErrInvalidInput indicates the caller supplied unusable talk data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates a write raced a terminal status and was refused.
	ErrConflict = errors.New("talk already finished")
)
