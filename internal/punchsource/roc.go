package punchsource

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/klasvik/prewarn/internal/config"
	"github.com/klasvik/prewarn/internal/cursor"
	"github.com/klasvik/prewarn/internal/domain/model"
	"github.com/klasvik/prewarn/pkg/logger"
	"github.com/klasvik/prewarn/pkg/metrics"
)

const (
	defaultFetchInterval  = 10 * time.Second
	defaultRequestTimeout = 30 * time.Second

	// rocFieldCount is the number of semicolon-separated fields per line:
	// id, control code, card number, passed time.
	rocFieldCount = 4
)

// ROC polls the online punch relay at roc.olresultat.se. Each fetch asks
// for punches after the cursor's last id; the server answers with one
// punch per line. Irrelevant controls are filtered out locally but still
// advance the cursor, so they are never fetched again.
type ROC struct {
	notifier

	store *config.Store
	guard *cursor.Guard

	baseURL  string
	unitID   string
	fromDate string
	fromTime string

	client *http.Client
	log    logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	reloadOnce sync.Once
}

// NewROC creates a ROC source. Runtime-editable settings (control codes,
// fetch interval, cursor) come through the config store; the rest is
// fixed at construction.
func NewROC(cfg *config.Config, store *config.Store, guard *cursor.Guard) *ROC {
	return &ROC{
		store:    store,
		guard:    guard,
		baseURL:  cfg.ROC.URL,
		unitID:   cfg.ROC.UnitID,
		fromDate: cfg.ROC.FromDate,
		fromTime: cfg.ROC.FromTime,
		client:   &http.Client{Timeout: defaultRequestTimeout},
		log:      logger.Named("punchsource.roc"),
	}
}

// Start begins polling in the background.
func (s *ROC) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})

	// Cursor edits arriving through config reloads go through the guard,
	// which tells apart our own write echoes from operator edits.
	s.reloadOnce.Do(func() {
		s.store.OnChange("roc", func() {
			incoming := cursor.Cursor{LastID: s.store.String("roc.last_id")}
			s.guard.OnReload(context.Background(), incoming)
		})
	})

	s.wg.Add(1)
	go s.poll(ctx)
	return nil
}

// Stop ends polling and waits for the poll loop to exit.
func (s *ROC) Stop() error {
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
func (s *ROC) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ROC) poll(ctx context.Context) {
	defer s.wg.Done()
	s.log.Debug(ctx, "started")
	for {
		if err := s.fetchOnce(ctx); err != nil {
			metrics.RecordFetchError()
			s.log.Error(ctx, "fetch failed", logger.Error(err))
		}

		interval := time.Duration(s.store.Int("roc.fetch_interval_seconds")) * time.Second
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

// fetchOnce performs one poll round: request everything after the cursor,
// deliver relevant punches and advance past all of them.
func (s *ROC) fetchOnce(ctx context.Context) error {
	cur := s.guard.Cursor()

	start := time.Now()
	body, err := s.request(ctx, cur)
	if err != nil {
		return err
	}
	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))

	codes := controlCodeSet(s.store.String("roc.control_codes"))

	changed := false
	fetched := 0
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fetched++
		fields := strings.SplitN(line, ";", rocFieldCount)
		if len(fields) < rocFieldCount {
			s.log.Warn(ctx, "skipping malformed punch line", logger.String("line", line))
			continue
		}
		p := model.Punch{
			ID:          fields[0],
			ControlCode: fields[1],
			CardNumber:  fields[2],
			PassedTime:  fields[3],
		}
		if p.ID == cur.LastID {
			metrics.RecordPunchDuplicate()
			s.log.Debug(ctx, "skipping already seen punch", logger.String("id", p.ID))
			continue
		}

		if _, relevant := codes[p.ControlCode]; relevant {
			s.notify(ctx, p)
			metrics.RecordPunchDelivered()
		} else {
			metrics.RecordPunchFiltered()
		}

		cur.LastID = p.ID
		changed = true
	}
	metrics.RecordPunchesFetched(fetched)

	if changed {
		// Persist failures are logged by the guard; the next successful
		// batch carries the latest cursor anyway.
		_ = s.guard.Advance(ctx, cur)
	}
	return nil
}

func (s *ROC) request(ctx context.Context, cur cursor.Cursor) (string, error) {
	q := url.Values{}
	q.Set("unitId", s.unitID)
	lastID := cur.LastID
	if lastID == "" {
		lastID = "0"
	}
	q.Set("lastId", lastID)
	if s.fromDate != "" {
		q.Set("date", s.fromDate)
	}
	if s.fromTime != "" {
		q.Set("time", s.fromTime)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	return decodeBody(resp)
}

// decodeBody honors the charset the server declares. The relay dates back
// to systems that answered in windows-1252.
func decodeBody(resp *http.Response) (string, error) {
	var reader io.Reader = resp.Body
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		switch strings.ToLower(params["charset"]) {
		case "windows-1252":
			reader = charmap.Windows1252.NewDecoder().Reader(reader)
		case "iso-8859-1", "latin1":
			reader = charmap.ISO8859_1.NewDecoder().Reader(reader)
		}
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return string(data), nil
}

func controlCodeSet(spaceSeparated string) map[string]struct{} {
	codes := make(map[string]struct{})
	for _, code := range strings.Fields(spaceSeparated) {
		codes[code] = struct{}{}
	}
	return codes
}
