package punchsource

import "errors"

var (
	// ErrUnknownSource indicates an unrecognized punch source name.
	ErrUnknownSource = errors.New("unknown punch source")
	// ErrFetch indicates a poll round failed.
	ErrFetch = errors.New("failed to fetch punches")
)
