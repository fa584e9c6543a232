package punchsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klasvik/prewarn/internal/config"
	"github.com/klasvik/prewarn/internal/cursor"
	"github.com/klasvik/prewarn/internal/domain/model"
	"github.com/klasvik/prewarn/pkg/logger"
	"github.com/klasvik/prewarn/pkg/metrics"
)

// initialWatermark is used before the first punch has been seen.
const initialWatermark = "1970-01-01 00:00:00.000"

// olaRow is one split time row from the event database, prejoined with
// the runner's bib and relay leg.
type olaRow struct {
	ID          string
	ControlCode string
	CardNumber  string
	PassedTime  string
	ModifyDate  string
	BibNumber   sql.NullString
	RelayLeg    sql.NullString
}

// OLA polls the event database for new split times on the pre-warning
// controls. Rows come prefiltered and ordered by modification time; the
// watermark cursor is the last row's modifyDate, with the composite row
// id as a guard against re-delivering the boundary row.
type OLA struct {
	notifier

	store *config.Store
	guard *cursor.Guard

	db          *sql.DB
	eventID     int
	eventRaceID int

	log logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	reloadOnce sync.Once

	// fetch is a seam for tests.
	fetch func(ctx context.Context, watermark string, controlIDs []string) ([]olaRow, error)
}

// NewOLA creates a database-polling source over an open connection pool.
func NewOLA(cfg *config.Config, store *config.Store, guard *cursor.Guard, db *sql.DB) *OLA {
	s := &OLA{
		store:       store,
		guard:       guard,
		db:          db,
		eventID:     cfg.OLA.EventID,
		eventRaceID: cfg.OLA.EventRaceID,
		log:         logger.Named("punchsource.ola"),
	}
	s.fetch = s.querySplitTimes
	return s
}

// Start verifies connectivity and begins polling in the background.
func (s *OLA) Start(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.reloadOnce.Do(func() {
		s.store.OnChange("ola", func() {
			incoming := cursor.Cursor{
				LastID:    s.store.String("ola.last_id"),
				Watermark: s.store.String("ola.last_modified"),
			}
			s.guard.OnReload(context.Background(), incoming)
		})
	})

	s.wg.Add(1)
	go s.poll(ctx)
	return nil
}

// Stop ends polling and waits for the poll loop to exit.
func (s *OLA) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// IsRunning reports whether the source is polling.
func (s *OLA) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *OLA) poll(ctx context.Context) {
	defer s.wg.Done()
	s.log.Debug(ctx, "started")
	for {
		if err := s.fetchOnce(ctx); err != nil {
			metrics.RecordFetchError()
			s.log.Error(ctx, "fetch failed", logger.Error(err))
		}

		interval := time.Duration(s.store.Int("ola.fetch_interval_seconds")) * time.Second
		if interval <= 0 {
			interval = defaultFetchInterval
		}
		select {
		case <-time.After(interval):
		case <-s.stopCh:
			s.log.Debug(ctx, "stopped")
			return
		case <-ctx.Done():
			return
		}
	}
}

// fetchOnce performs one poll round. The watermark query is inclusive, so
// the previously delivered boundary row comes back and is skipped by id.
func (s *OLA) fetchOnce(ctx context.Context) error {
	cur := s.guard.Cursor()
	watermark := cur.Watermark
	if watermark == "" {
		watermark = initialWatermark
	}

	controlIDs := strings.Fields(s.store.String("ola.control_ids"))
	if len(controlIDs) == 0 {
		s.log.Warn(ctx, "no pre-warning controls configured, nothing to fetch")
		return nil
	}

	start := time.Now()
	rows, err := s.fetch(ctx, watermark, controlIDs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordPunchesFetched(len(rows))

	changed := false
	for _, row := range rows {
		if row.ID == cur.LastID {
			metrics.RecordPunchDuplicate()
			s.log.Debug(ctx, "skipping already seen punch", logger.String("id", row.ID))
			continue
		}

		p := model.Punch{
			ID:          row.ID,
			ControlCode: row.ControlCode,
			CardNumber:  row.CardNumber,
			PassedTime:  row.PassedTime,
			Modified:    row.ModifyDate,
			BibNumber:   row.BibNumber.String,
			RelayLeg:    row.RelayLeg.String,
			PreJoined:   row.BibNumber.Valid,
		}
		s.notify(ctx, p)
		metrics.RecordPunchDelivered()

		cur.LastID = row.ID
		cur.Watermark = row.ModifyDate
		changed = true
	}
	if changed {
		_ = s.guard.Advance(ctx, cur)
	}
	return nil
}

func (s *OLA) querySplitTimes(ctx context.Context, watermark string, controlIDs []string) ([]olaRow, error) {
	query, args := splitTimesQuery(s.eventID, s.eventRaceID, controlIDs, watermark)

	dbRows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer dbRows.Close()

	var rows []olaRow
	for dbRows.Next() {
		var r olaRow
		if err := dbRows.Scan(&r.ID, &r.ControlCode, &r.CardNumber, &r.PassedTime,
			&r.ModifyDate, &r.BibNumber, &r.RelayLeg); err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, dbRows.Err()
}

// splitTimesQuery builds the prejoined split-times query with one
// placeholder per pre-warning control.
func splitTimesQuery(eventID, eventRaceID int, controlIDs []string, watermark string) (string, []interface{}) {
	args := make([]interface{}, 0, len(controlIDs)+3)
	args = append(args, eventID, eventRaceID)

	placeholders := make([]string, len(controlIDs))
	for i, id := range controlIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, id)
	}
	args = append(args, watermark)

	query := fmt.Sprintf(`
SELECT "SplitTimes"."resultRaceIndividualNumber" || '_' ||
       "SplitTimes"."passedCount" || '_' ||
       "SplitTimes"."timingControl" AS id,
       "Controls"."ID" AS "controlCode",
       "ElectronicPunchingCards"."cardNumber",
       "SplitTimes"."passedTime",
       "SplitTimes"."modifyDate",
       "Results"."bibNumber",
       "RaceClasses"."relayLeg"
  FROM "SplitTimes"
  LEFT JOIN "Results"
         ON "SplitTimes"."resultRaceIndividualNumber" = "Results"."resultId"
  LEFT JOIN "RaceClasses"
         ON "Results"."raceClassId" = "RaceClasses"."raceClassId"
  LEFT JOIN "ElectronicPunchingCards"
         ON "Results"."electronicPunchingCardId" = "ElectronicPunchingCards"."cardId"
  LEFT JOIN "Controls"
         ON "SplitTimes"."timingControl" = "Controls"."controlId"
  LEFT JOIN "EventRaces"
         ON "RaceClasses"."eventRaceId" = "EventRaces"."eventRaceId"
 WHERE "EventRaces"."eventId" = $1
   AND "EventRaces"."eventRaceId" = $2
   AND "Controls"."ID" IN (%s)
   AND "SplitTimes"."modifyDate" >= $%d
 ORDER BY "SplitTimes"."modifyDate" ASC`,
		strings.Join(placeholders, ", "), len(controlIDs)+3)

	return query, args
}
