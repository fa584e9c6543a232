package ops_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klasvik/prewarn/internal/adapters/http/ops"
	"github.com/klasvik/prewarn/pkg/metrics"
)

type fakeStatus struct{}

func (fakeStatus) Status() map[string]interface{} {
	return map[string]interface{}{
		"punch_source": "roc",
		"running":      true,
	}
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	ops.NewServer(fakeStatus{}).Register(mux)
	return mux
}

func TestHealthz(t *testing.T) {
	mux := newMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestStatus(t *testing.T) {
	mux := newMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["punch_source"] != "roc" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestMetrics(t *testing.T) {
	metrics.RecordPunchDelivered()

	mux := newMux()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected metrics output")
	}
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	mux := newMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for POST, got %d", rec.Code)
	}
}
