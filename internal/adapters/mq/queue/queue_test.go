package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/klasvik/prewarn/internal/domain/model"
)

func TestInMemory_BasicOperations(t *testing.T) {
	q := NewInMemory[model.Punch](WithName("punches"), WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	p1 := model.Punch{ID: "1", ControlCode: "101", CardNumber: "500123", PassedTime: "2026-07-04 10:15:00"}
	if !q.Enqueue(ctx, p1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	out := q.Dequeue(ctx)
	got := <-out
	if got.ID != "1" {
		t.Errorf("expected punch 1, got %v", got.ID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemory_Capacity(t *testing.T) {
	q := NewInMemory[model.Punch](WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, model.Punch{ID: "1"}) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, model.Punch{ID: "2"}) {
		t.Error("expected enqueue to succeed")
	}

	if q.Enqueue(ctx, model.Punch{ID: "3"}) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemory_ConcurrentAccess(t *testing.T) {
	q := NewInMemory[model.Punch](WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numPunches := 100

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numPunches; j++ {
				p := model.Punch{
					ID:          fmt.Sprintf("p%d_%d", id, j),
					CardNumber:  fmt.Sprintf("%d", 500000+id),
					ControlCode: "101",
				}
				for !q.Enqueue(ctx, p) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	consumed := make(chan string, numGoroutines*numPunches)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			for p := range q.Dequeue(ctx) {
				consumed <- p.ID
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	time.Sleep(100 * time.Millisecond)

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemory_GracefulShutdown(t *testing.T) {
	q := NewInMemory[model.Announcement](WithName("announcements"), WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, model.Announcement{SoundKey: "123"}) {
		t.Error("expected enqueue to succeed")
	}

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}

	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	if q.Enqueue(ctx, model.Announcement{SoundKey: "456"}) {
		t.Error("expected enqueue to fail after closing")
	}

	// The buffered item drains, then the channel closes.
	out := q.Dequeue(ctx)
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
		case <-timeout:
			t.Error("expected dequeue channel to be closed within timeout")
			return
		}
	}
}
