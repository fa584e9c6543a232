package roster

import (
	"context"
	"database/sql"
	"sync"

	"github.com/klasvik/prewarn/pkg/logger"
	"github.com/klasvik/prewarn/pkg/metrics"
)

// bibLegQuery resolves a card number to its team bib and relay leg inside
// one event race. Cards reused across classes come back as multiple rows,
// which the lookup treats as unresolvable.
const bibLegQuery = `
SELECT "Results"."bibNumber",
       "RaceClasses"."relayLeg"
  FROM "Results"
  LEFT JOIN "RaceClasses"
         ON "Results"."raceClassId" = "RaceClasses"."raceClassId"
  LEFT JOIN "EventRaces"
         ON "RaceClasses"."eventRaceId" = "EventRaces"."eventRaceId"
  LEFT JOIN "ElectronicPunchingCards"
         ON "Results"."electronicPunchingCardId" = "ElectronicPunchingCards"."cardId"
 WHERE "EventRaces"."eventId" = $1
   AND "EventRaces"."eventRaceId" = $2
   AND "ElectronicPunchingCards"."cardNumber" = $3
 ORDER BY "Results"."bibNumber",
          "RaceClasses"."relayLeg"`

// DB resolves card numbers against the event database with one query per
// lookup, so there is nothing to reload when the organizer edits entries.
type DB struct {
	db          *sql.DB
	eventID     int
	eventRaceID int
	log         logger.Logger

	mu      sync.RWMutex
	running bool

	// query is a seam for tests.
	query func(ctx context.Context, cardNumber string) ([]Entry, error)
}

// NewDB creates a database-backed roster over an open connection pool.
func NewDB(db *sql.DB, eventID, eventRaceID int) *DB {
	d := &DB{
		db:          db,
		eventID:     eventID,
		eventRaceID: eventRaceID,
		log:         logger.Named("roster.db"),
	}
	d.query = d.queryBibLeg
	return d
}

// Start verifies connectivity and brings the lookup into service.
func (d *DB) Start(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	d.running = true
	d.mu.Unlock()
	return nil
}

// Stop takes the lookup out of service. The connection pool is owned by
// the caller and stays open.
func (d *DB) Stop() error {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	return nil
}

// IsRunning reports whether the lookup is in service.
func (d *DB) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// LookupCard resolves a card number. Zero rows and ambiguous cards both
// come back as ErrNotFound; a pre-warning with a wrong bib is worse than
// none at all.
func (d *DB) LookupCard(ctx context.Context, cardNumber string) (Entry, error) {
	if !d.IsRunning() {
		return Entry{}, ErrNotRunning
	}

	entries, err := d.query(ctx, cardNumber)
	if err != nil {
		d.log.Error(ctx, "start list query failed",
			logger.String("card_number", cardNumber),
			logger.Error(err))
		return Entry{}, err
	}

	switch len(entries) {
	case 1:
		return entries[0], nil
	case 0:
		metrics.RecordRosterLookupMiss()
		d.log.Warn(ctx, "card number not found", logger.String("card_number", cardNumber))
		return Entry{}, ErrNotFound
	default:
		metrics.RecordRosterLookupMiss()
		d.log.Warn(ctx, "card number is ambiguous, skipping",
			logger.String("card_number", cardNumber),
			logger.Int("matches", len(entries)))
		return Entry{}, ErrNotFound
	}
}

func (d *DB) queryBibLeg(ctx context.Context, cardNumber string) ([]Entry, error) {
	rows, err := d.db.QueryContext(ctx, bibLegQuery, d.eventID, d.eventRaceID, cardNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var bib, leg sql.NullString
		if err := rows.Scan(&bib, &leg); err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Bib: bib.String, Leg: leg.String})
	}
	return entries, rows.Err()
}
