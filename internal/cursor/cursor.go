// Package cursor tracks ingestion progress for one punch source and keeps
// it durable across restarts.
//
// A cursor is stored in the hot-reloadable configuration store so operators
// can inspect and edit it. Because the same file is watched for changes, a
// reload can race with the polling loop and push a stale value back in; the
// Guard arbitrates between the two write paths.
package cursor

// Cursor is the progress marker for one punch source instance. LastID is
// the id of the last delivered punch. Watermark is the last-seen
// modification timestamp, used only by time-windowed sources.
type Cursor struct {
	LastID    string
	Watermark string
}

// IsZero reports whether the cursor holds no progress at all.
func (c Cursor) IsZero() bool {
	return c.LastID == "" && c.Watermark == ""
}

// Store persists a cursor durably and reads it back after a restart.
type Store interface {
	Load() (Cursor, error)
	Save(Cursor) error
}
