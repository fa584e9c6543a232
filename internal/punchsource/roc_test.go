package punchsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/klasvik/prewarn/internal/config"
	"github.com/klasvik/prewarn/internal/cursor"
	"github.com/klasvik/prewarn/internal/domain/model"
	"github.com/klasvik/prewarn/pkg/logger"
)

type captureListener struct {
	punches []model.Punch
}

func (c *captureListener) OnPunch(_ context.Context, p model.Punch) {
	c.punches = append(c.punches, p)
}

func writeConfig(t *testing.T, content string) *config.Store {
	t.Helper()
	_ = logger.Init()
	_ = logger.SetLevelString("error")

	path := filepath.Join(t.TempDir(), "prewarn.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := config.NewStore(path, logger.Get())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func newTestROC(t *testing.T, serverURL string, store *config.Store) (*ROC, *captureListener) {
	t.Helper()
	guard, err := cursor.NewGuard(cursor.NewConfigStore(store, "roc.last_id", ""), logger.Get())
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.New()
	cfg.ROC.URL = serverURL
	cfg.ROC.UnitID = "427"

	s := NewROC(cfg, store, guard)
	listener := &captureListener{}
	s.AddListener(listener)
	return s, listener
}

func TestROCFetchOnce(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		// One relevant punch, one filtered control, one malformed line.
		_, _ = w.Write([]byte(
			"18;101;500123;2026-07-04 10:15:03\r\n" +
				"19;250;500456;2026-07-04 10:15:09\r\n" +
				"garbage-line\r\n" +
				"20;102;500789;2026-07-04 10:15:12\r\n"))
	}))
	defer server.Close()

	store := writeConfig(t, `
roc:
  last_id: "17"
  control_codes: "101 102"
`)
	s, listener := newTestROC(t, server.URL, store)

	if err := s.fetchOnce(context.Background()); err != nil {
		t.Fatalf("fetchOnce failed: %v", err)
	}

	if got := gotQuery.Get("unitId"); got != "427" {
		t.Errorf("expected unitId 427, got %q", got)
	}
	if got := gotQuery.Get("lastId"); got != "17" {
		t.Errorf("expected lastId 17, got %q", got)
	}

	if len(listener.punches) != 2 {
		t.Fatalf("expected 2 delivered punches, got %d: %+v", len(listener.punches), listener.punches)
	}
	if listener.punches[0].ID != "18" || listener.punches[0].CardNumber != "500123" {
		t.Errorf("unexpected first punch: %+v", listener.punches[0])
	}
	if listener.punches[1].ControlCode != "102" {
		t.Errorf("unexpected second punch: %+v", listener.punches[1])
	}

	// The filtered punch still advances the cursor.
	if got := s.guard.Cursor().LastID; got != "20" {
		t.Errorf("expected cursor at 20, got %q", got)
	}
	if got := store.String("roc.last_id"); got != "20" {
		t.Errorf("expected persisted cursor 20, got %q", got)
	}
}

func TestROCFetchOnceSkipsBoundaryPunch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("17;101;500123;2026-07-04 10:15:03\n"))
	}))
	defer server.Close()

	store := writeConfig(t, `
roc:
  last_id: "17"
  control_codes: "101"
`)
	s, listener := newTestROC(t, server.URL, store)

	if err := s.fetchOnce(context.Background()); err != nil {
		t.Fatalf("fetchOnce failed: %v", err)
	}
	if len(listener.punches) != 0 {
		t.Errorf("expected boundary punch to be skipped, got %+v", listener.punches)
	}
	if got := s.guard.Cursor().LastID; got != "17" {
		t.Errorf("expected cursor to stay at 17, got %q", got)
	}
}

func TestROCFetchOnceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	store := writeConfig(t, `
roc:
  last_id: "17"
  control_codes: "101"
`)
	s, listener := newTestROC(t, server.URL, store)

	if err := s.fetchOnce(context.Background()); err == nil {
		t.Error("expected an error for a 500 response")
	}
	if len(listener.punches) != 0 {
		t.Errorf("expected no punches, got %+v", listener.punches)
	}
	if got := s.guard.Cursor().LastID; got != "17" {
		t.Errorf("expected cursor to stay at 17, got %q", got)
	}
}

func TestROCLifecycle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	store := writeConfig(t, `
roc:
  control_codes: "101"
  fetch_interval_seconds: 60
`)
	s, _ := newTestROC(t, server.URL, store)

	if s.IsRunning() {
		t.Error("expected source to be stopped initially")
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !s.IsRunning() {
		t.Error("expected source to be running after Start")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if s.IsRunning() {
		t.Error("expected source to be stopped after Stop")
	}
}

func TestAddListenerIdempotent(t *testing.T) {
	var n notifier
	l := &captureListener{}
	n.AddListener(l)
	n.AddListener(l)

	n.notify(context.Background(), model.Punch{ID: "1"})
	if len(l.punches) != 1 {
		t.Errorf("expected one delivery, got %d", len(l.punches))
	}
}
