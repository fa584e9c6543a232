package cursor

import (
	"context"
	"sync"

	"github.com/klasvik/prewarn/pkg/logger"
	"github.com/klasvik/prewarn/pkg/metrics"
)

// maxWriteSet bounds the echo memory between round-trips.
const maxWriteSet = 1024

// Guard arbitrates between a source advancing its cursor and config
// reloads pushing values back in. Writing the config file triggers the
// file watcher, so every Advance eventually comes back as a reload; the
// guard remembers what this process wrote and ignores those echoes, while
// still honoring a value an operator edited in by hand.
type Guard struct {
	mu          sync.Mutex
	held        Cursor
	written     map[Cursor]struct{}
	lastWritten Cursor
	store       Store
	log         logger.Logger
}

// NewGuard creates a guard over the given store, seeded with the cursor
// the store currently holds.
func NewGuard(store Store, log logger.Logger) (*Guard, error) {
	held, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Guard{
		held:    held,
		written: make(map[Cursor]struct{}),
		store:   store,
		log:     log,
	}, nil
}

// Cursor returns the value the guard currently vouches for.
func (g *Guard) Cursor() Cursor {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// Advance moves the cursor forward and persists it. The value is recorded
// in the write-set before the durable write, so an echo arriving while the
// write is still in flight is already recognized as self-inflicted. A
// persist failure is reported but the in-memory cursor still advances; the
// next successful Advance carries the latest value anyway.
func (g *Guard) Advance(ctx context.Context, c Cursor) error {
	g.mu.Lock()
	g.held = c
	if len(g.written) >= maxWriteSet {
		// Round-trips normally empty the set; without a working file
		// watch they never arrive, so drop the stale entries here.
		clear(g.written)
	}
	g.written[c] = struct{}{}
	g.lastWritten = c
	g.mu.Unlock()

	if err := g.store.Save(c); err != nil {
		metrics.RecordCursorPersistError()
		g.log.Error(ctx, "failed to persist cursor",
			logger.String("last_id", c.LastID),
			logger.Error(err))
		return err
	}

	g.mu.Lock()
	g.written[c] = struct{}{}
	g.mu.Unlock()
	return nil
}

// OnReload feeds a cursor observed in a config reload back into the guard.
// It returns the cursor to continue from and whether the incoming value was
// accepted as an external edit. A value this process wrote itself is
// ignored; when the most recent write round-trips, the write-set is cleared
// so a later identical operator edit is not mistaken for an echo.
func (g *Guard) OnReload(ctx context.Context, incoming Cursor) (Cursor, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, self := g.written[incoming]
	if !self && incoming != g.held {
		g.log.Info(ctx, "cursor changed externally, adopting",
			logger.String("old_last_id", g.held.LastID),
			logger.String("new_last_id", incoming.LastID))
		metrics.RecordCursorExternalEdit()
		g.held = incoming
		clear(g.written)
		g.lastWritten = Cursor{}
		return g.held, true
	}

	if incoming == g.lastWritten {
		clear(g.written)
		g.lastWritten = Cursor{}
	}
	return g.held, false
}
