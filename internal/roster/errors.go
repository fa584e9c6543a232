package roster

import "errors"

var (
	// ErrNotFound indicates the card number could not be resolved.
	ErrNotFound = errors.New("card number not found in start list")
	// ErrInvalidStartList indicates the start-list file could not be parsed.
	ErrInvalidStartList = errors.New("not a valid IOF 3.0 start list")
	// ErrUnknownSource indicates an unrecognized roster source name.
	ErrUnknownSource = errors.New("unknown roster source")
	// ErrNotRunning indicates a lookup on a stopped roster.
	ErrNotRunning = errors.New("roster lookup is not running")
)
