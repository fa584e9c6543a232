// Package stage holds the two pipeline consumers: enrichment of raw
// punches into pre-warnings, and announcement playback.
package stage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/klasvik/prewarn/internal/adapters/display"
	"github.com/klasvik/prewarn/internal/domain/model"
	"github.com/klasvik/prewarn/internal/roster"
	"github.com/klasvik/prewarn/pkg/logger"
	"github.com/klasvik/prewarn/pkg/metrics"
)

// PunchQueue defines how the enrichment stage receives punches.
type PunchQueue interface {
	Dequeue(ctx context.Context) <-chan model.Punch
}

// AnnouncementQueue defines how the enrichment stage hands announcements
// to the playback stage.
type AnnouncementQueue interface {
	Enqueue(ctx context.Context, a model.Announcement) bool
}

// Enricher resolves punches to team bib numbers, shows them on the
// display and queues the audible announcement.
type Enricher struct {
	queue         PunchQueue
	roster        roster.Lookup
	display       display.Sink
	announcements AnnouncementQueue

	// preferLookup selects the merge rule for prejoined punches: a file
	// start list overrides prejoined data when it resolves, the event
	// database would only repeat what the punch already carries. Atomic
	// because a roster variant switch flips it while the loop runs.
	preferLookup atomic.Bool

	shutdown chan struct{}
	done     chan struct{}

	log logger.Logger
}

// NewEnricher creates the enrichment stage.
func NewEnricher(q PunchQueue, r roster.Lookup, d display.Sink, a AnnouncementQueue, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		queue:         q,
		roster:        r,
		display:       d,
		announcements: a,
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		log:           logger.Named("stage.enrich"),
	}
	e.preferLookup.Store(true)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetPreferLookup changes the merge rule, typically after the roster
// variant changed at runtime.
func (e *Enricher) SetPreferLookup(prefer bool) {
	e.preferLookup.Store(prefer)
}

// Run consumes punches until ctx is canceled or Shutdown is called.
func (e *Enricher) Run(ctx context.Context) {
	defer close(e.done)

	punches := e.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.shutdown:
			return
		case p, ok := <-punches:
			if !ok {
				return
			}
			e.process(ctx, p)
		}
	}
}

// Shutdown gracefully stops the stage.
func (e *Enricher) Shutdown(ctx context.Context) error {
	close(e.shutdown)
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		e.log.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process applies the enrichment rules to one punch. A punch without team
// data that the start list cannot resolve is dropped; a prejoined punch
// survives a failed lookup with its own data.
func (e *Enricher) process(ctx context.Context, p model.Punch) {
	e.log.Debug(ctx, "processing punch",
		logger.String("card_number", p.CardNumber),
		logger.String("control_code", p.ControlCode))

	bib, leg := p.BibNumber, p.RelayLeg
	if p.PreJoined {
		if e.preferLookup.Load() {
			entry, err := e.roster.LookupCard(ctx, p.CardNumber)
			if err == nil {
				bib, leg = entry.Bib, entry.Leg
			} else if !errors.Is(err, roster.ErrNotFound) {
				e.log.Warn(ctx, "start list lookup failed, using prejoined data", logger.Error(err))
			}
		}
	} else {
		entry, err := e.roster.LookupCard(ctx, p.CardNumber)
		if err != nil {
			metrics.RecordPunchDropped()
			e.log.Debug(ctx, "could not find the team connected to the card number, skipping",
				logger.String("card_number", p.CardNumber))
			return
		}
		bib, leg = entry.Bib, entry.Leg
	}

	warning := model.PreWarning{
		TimeOfDay: p.TimeOfDay(),
		Bib:       bib,
		Leg:       leg,
	}
	e.display.AddRow(ctx, warning)
	metrics.RecordPreWarning()

	announcement := model.Announcement{SoundKey: model.Display(bib)}
	if !e.announcements.Enqueue(ctx, announcement) {
		e.log.Warn(ctx, "announcement queue full, dropping announcement",
			logger.String("bib", bib))
	}
}
