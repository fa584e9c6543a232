package cursor

import (
	"context"
	"strconv"
	"testing"

	"github.com/klasvik/prewarn/pkg/logger"
)

type nullStore struct{ held Cursor }

func (s *nullStore) Load() (Cursor, error) { return s.held, nil }
func (s *nullStore) Save(c Cursor) error   { s.held = c; return nil }

func TestGuardWriteSetBounded(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	g, err := NewGuard(&nullStore{}, logger.Get())
	if err != nil {
		t.Fatal(err)
	}

	// No reload ever confirms a round-trip, the way a dead file watch
	// behaves. The echo memory must not grow with every batch.
	for i := 1; i <= 3*maxWriteSet; i++ {
		if err := g.Advance(ctx, Cursor{LastID: strconv.Itoa(i)}); err != nil {
			t.Fatal(err)
		}
	}

	g.mu.Lock()
	size := len(g.written)
	g.mu.Unlock()
	if size > maxWriteSet {
		t.Errorf("expected at most %d remembered writes, got %d", maxWriteSet, size)
	}

	// The latest write is still recognized as our own echo.
	last := Cursor{LastID: strconv.Itoa(3 * maxWriteSet)}
	if got, external := g.OnReload(ctx, last); external || got != last {
		t.Errorf("expected the latest write to round-trip quietly, got %+v (external=%v)", got, external)
	}
}
