package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewManager(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(WithRegistry(reg), WithNamespace("testns"))
	if m == nil {
		t.Fatal("manager is nil")
	}
	if m.namespace != "testns" {
		t.Errorf("namespace = %q, want %q", m.namespace, "testns")
	}
}

func TestGlobalRecorders(t *testing.T) {
	// The global manager is initialized in init(); these must not panic.
	RecordPunchesFetched(3)
	RecordPunchDelivered()
	RecordPunchFiltered()
	RecordPunchDuplicate()
	RecordFetchError()
	RecordFetchLatency(12.5)
	RecordCursorPersistError()
	RecordCursorExternalEdit()
	RecordRosterReload()
	RecordRosterReloadError()
	RecordRosterLookupMiss()
	UpdateRosterSize(42)
	RecordPreWarning()
	RecordPunchDropped()
	RecordAnnouncement()
	RecordIntroCue()
	RecordPlaybackError()
	UpdateQueueSize("punch", 1)
	RecordQueueEnqueueError("punch")

	families, err := GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families registered")
	}
}
