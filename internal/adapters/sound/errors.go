package sound

import "errors"

var (
	// ErrPlayerNotFound indicates no usable mpg123 binary could be located.
	ErrPlayerNotFound = errors.New("unable to locate the mpg123 binary")
	// ErrPlayback indicates the player process failed.
	ErrPlayback = errors.New("sound playback failed")
)
