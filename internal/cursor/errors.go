package cursor

import "errors"

var (
	// ErrLoad indicates the persisted cursor could not be read back.
	ErrLoad = errors.New("failed to load cursor")
	// ErrSave indicates the cursor could not be written durably.
	ErrSave = errors.New("failed to save cursor")
)
