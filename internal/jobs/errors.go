package jobs

import "errors"

var (
	ErrNotFound     = errors.New("job not found")
	ErrDuplicateJob = errors.New("job already exists")
	ErrTerminal     = errors.New("job already in a terminal state")
	ErrInvalidState = errors.New("invalid job state")
)
