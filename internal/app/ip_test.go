package app

import (
	"context"
	"strconv"
	"testing"

	"github.com/klasvik/prewarn/internal/adapters/mq/queue"
	"github.com/klasvik/prewarn/internal/domain/model"
	"github.com/klasvik/prewarn/pkg/logger"
)

func TestAnnounceIP(t *testing.T) {
	_ = logger.Init()
	_ = logger.SetLevelString("error")
	ctx := context.Background()

	p := &Pipeline{
		announceQueue: queue.NewInMemory[model.Announcement](queue.WithCapacity(8)),
		log:           logger.Named("pipeline"),
	}
	p.announceIP(ctx)

	// No outbound route means no announcement; with one, every queued
	// octet is a number spoken in English.
	n := p.announceQueue.Len(ctx)
	if n > 4 {
		t.Fatalf("expected at most 4 octets, got %d", n)
	}
	out := p.announceQueue.Dequeue(ctx)
	for i := 0; i < n; i++ {
		a := <-out
		if a.Language != "en" {
			t.Errorf("expected English announcement, got %q", a.Language)
		}
		if _, err := strconv.Atoi(a.SoundKey); err != nil {
			t.Errorf("expected a numeric octet, got %q", a.SoundKey)
		}
	}
}

func TestAnnounceIPFullQueue(t *testing.T) {
	_ = logger.Init()
	_ = logger.SetLevelString("error")
	ctx := context.Background()

	q := queue.NewInMemory[model.Announcement](queue.WithCapacity(8))
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	p := &Pipeline{announceQueue: q, log: logger.Named("pipeline")}
	// Rejected enqueues are logged and skipped, never fatal.
	p.announceIP(ctx)
}
