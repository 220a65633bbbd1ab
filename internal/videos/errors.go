package videos

import "errors"

var (
	// ErrInvalidTitle indicates a rename to an empty title.
	ErrInvalidTitle = errors.New("video title must not be empty")
)
