package app

import (
	"context"
	"testing"

	"github.com/klasvik/prewarn/internal/roster"
)

type staticRoster struct {
	entry   roster.Entry
	running bool
}

func (s *staticRoster) Start(context.Context) error { s.running = true; return nil }
func (s *staticRoster) Stop() error                 { s.running = false; return nil }
func (s *staticRoster) IsRunning() bool             { return s.running }

func (s *staticRoster) LookupCard(context.Context, string) (roster.Entry, error) {
	return s.entry, nil
}

func TestRosterSwitch(t *testing.T) {
	ctx := context.Background()
	first := &staticRoster{entry: roster.Entry{Bib: "1"}}
	second := &staticRoster{entry: roster.Entry{Bib: "2"}}

	sw := newRosterSwitch(first)
	if err := sw.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !first.running {
		t.Error("expected delegated start to reach the inner roster")
	}

	entry, err := sw.LookupCard(ctx, "500123")
	if err != nil || entry.Bib != "1" {
		t.Errorf("expected lookup against the first roster, got %+v (%v)", entry, err)
	}

	old := sw.swap(second)
	if old != first {
		t.Error("expected swap to hand back the previous roster")
	}

	entry, err = sw.LookupCard(ctx, "500123")
	if err != nil || entry.Bib != "2" {
		t.Errorf("expected lookup against the second roster, got %+v (%v)", entry, err)
	}
}
