// Package app wires the ingestion pipeline together: punch source,
// queues, enrichment, display and announcement playback.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/klasvik/prewarn/internal/adapters/display"
	"github.com/klasvik/prewarn/internal/adapters/mq/queue"
	"github.com/klasvik/prewarn/internal/adapters/sound"
	"github.com/klasvik/prewarn/internal/config"
	"github.com/klasvik/prewarn/internal/cursor"
	"github.com/klasvik/prewarn/internal/domain/model"
	"github.com/klasvik/prewarn/internal/punchsource"
	"github.com/klasvik/prewarn/internal/roster"
	"github.com/klasvik/prewarn/internal/stage"
	"github.com/klasvik/prewarn/pkg/logger"
)

const stageShutdownTimeout = 10 * time.Second

// Pipeline owns every moving part of the pre-warning flow and brings
// them up and down in dependency order.
type Pipeline struct {
	mu sync.Mutex

	cfg   *config.Config
	store *config.Store

	// Injectable for tests; built from config when nil.
	player  sound.Player
	display display.Sink
	source  punchsource.Source
	roster  roster.Lookup

	sourceInjected bool
	rosterInjected bool

	punchQueue    *queue.InMemory[model.Punch]
	announceQueue *queue.InMemory[model.Announcement]
	enricher      *stage.Enricher
	announcer     *stage.Announcer
	cursorStore   *cursor.Multi
	guard         *cursor.Guard
	rosterSwitch  *rosterSwitch

	// Active variant names; follow configuration edits at runtime.
	punchVariant  string
	rosterVariant string

	runCtx    context.Context
	watchOnce sync.Once
	started   bool
	log       logger.Logger
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithPlayer injects a sound player, skipping mpg123 discovery.
func WithPlayer(p sound.Player) Option {
	return func(pl *Pipeline) {
		if p != nil {
			pl.player = p
		}
	}
}

// WithDisplay injects a display sink.
func WithDisplay(d display.Sink) Option {
	return func(pl *Pipeline) {
		if d != nil {
			pl.display = d
		}
	}
}

// WithSource injects a punch source, skipping the factory.
func WithSource(s punchsource.Source) Option {
	return func(pl *Pipeline) {
		if s != nil {
			pl.source = s
		}
	}
}

// WithRoster injects a roster lookup, skipping the factory.
func WithRoster(r roster.Lookup) Option {
	return func(pl *Pipeline) {
		if r != nil {
			pl.roster = r
		}
	}
}

// New constructs a Pipeline over the loaded configuration and its
// hot-reloadable store.
func New(cfg *config.Config, store *config.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:           cfg,
		store:         store,
		punchVariant:  cfg.PunchSource,
		rosterVariant: cfg.RosterSource,
		log:           logger.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sourceInjected = p.source != nil
	p.rosterInjected = p.roster != nil
	return p
}

// queueListener bridges a punch source to the punch queue.
type queueListener struct {
	q   *queue.InMemory[model.Punch]
	log logger.Logger
}

func (l *queueListener) OnPunch(ctx context.Context, p model.Punch) {
	if !l.q.Enqueue(ctx, p) {
		l.log.Warn(ctx, "punch queue full, dropping punch", logger.String("id", p.ID))
	}
}

// Start brings the pipeline up: stages first so queues drain from the
// moment the source delivers its first punch.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}
	cfg := p.cfg

	p.punchQueue = queue.NewInMemory[model.Punch](
		queue.WithName("punches"),
		queue.WithCapacity(cfg.QueueSize))
	p.announceQueue = queue.NewInMemory[model.Announcement](
		queue.WithName("announcements"),
		queue.WithCapacity(cfg.QueueSize))

	if p.player == nil {
		folder := sound.NewFolder(cfg.Sound.Dir)
		player, err := sound.NewMPG123(folder,
			sound.WithEnabled(cfg.Sound.Enabled),
			sound.WithDefaultLanguage(cfg.Sound.DefaultLanguage))
		if err != nil {
			return fmt.Errorf("failed to set up sound playback: %w", err)
		}
		p.player = player
	}
	if p.display == nil {
		p.display = display.NewConsole(nil)
	}

	if p.roster == nil {
		r, err := p.buildRoster(cfg.RosterSource)
		if err != nil {
			return err
		}
		p.roster = r
	}
	if _, ok := p.roster.(*rosterSwitch); !ok {
		p.rosterSwitch = newRosterSwitch(p.roster)
		p.roster = p.rosterSwitch
	}
	if err := p.roster.Start(ctx); err != nil {
		return fmt.Errorf("failed to start roster: %w", err)
	}

	if p.source == nil {
		source, cursorStore, guard, err := p.buildSource(cfg.PunchSource)
		if err != nil {
			return err
		}
		p.source, p.cursorStore, p.guard = source, cursorStore, guard
	}
	p.source.AddListener(&queueListener{q: p.punchQueue, log: p.log})

	p.enricher = stage.NewEnricher(p.punchQueue, p.roster, p.display, p.announceQueue,
		stage.WithPreferLookup(cfg.RosterSource != config.RosterSourceOLA))
	p.announcer = stage.NewAnnouncer(p.announceQueue, p.player,
		stage.WithIntro(cfg.Sound.IntroEnabled, cfg.Sound.IntroFile,
			time.Duration(cfg.Sound.IntroTimeoutSeconds)*time.Second))

	go p.enricher.Run(ctx)
	go p.announcer.Run(ctx)

	if cfg.Sound.Enabled && cfg.Sound.TestFile != "" {
		// Speaker check before the first real announcement.
		if err := p.player.Play(ctx, cfg.Sound.TestFile); err != nil {
			p.log.Warn(ctx, "test sound playback failed", logger.Error(err))
		}
	}
	if cfg.AnnounceIPOnStartup {
		p.announceIP(ctx)
	}

	if err := p.source.Start(ctx); err != nil {
		return fmt.Errorf("failed to start punch source: %w", err)
	}

	// Variant edits in the configuration file swap the running component,
	// the way the operator dialog used to rebuild its sources.
	p.watchOnce.Do(func() {
		if !p.sourceInjected {
			p.store.OnChange("punch_source", p.onPunchSourceChange)
		}
		if !p.rosterInjected {
			p.store.OnChange("roster_source", p.onRosterSourceChange)
		}
	})

	p.runCtx = ctx
	p.started = true
	p.log.Info(ctx, "pipeline started",
		logger.String("punch_source", cfg.PunchSource),
		logger.String("roster_source", cfg.RosterSource),
		logger.Int("queue_size", cfg.QueueSize))
	return nil
}

// Stop tears the pipeline down in reverse order, draining the queues
// before the stages exit. The cursor state file is removed so the next
// start trusts the config store alone.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}

	if err := p.source.Stop(); err != nil {
		p.log.Warn(ctx, "failed to stop punch source", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, stageShutdownTimeout)
	defer cancel()

	_ = p.punchQueue.Close()
	if err := p.enricher.Shutdown(shutdownCtx); err != nil {
		p.log.Warn(ctx, "enrichment stage shutdown failed", logger.Error(err))
	}
	_ = p.announceQueue.Close()
	if err := p.announcer.Shutdown(shutdownCtx); err != nil {
		p.log.Warn(ctx, "announcement stage shutdown failed", logger.Error(err))
	}

	if err := p.roster.Stop(); err != nil {
		p.log.Warn(ctx, "failed to stop roster", logger.Error(err))
	}

	if p.cursorStore != nil {
		if err := p.cursorStore.Close(); err != nil {
			p.log.Warn(ctx, "failed to remove cursor state file", logger.Error(err))
		}
	}
	if !p.sourceInjected {
		// A later Start rebuilds the source with a fresh listener set.
		p.source, p.cursorStore, p.guard = nil, nil, nil
	}

	p.started = false
	p.log.Info(ctx, "pipeline stopped")
	return nil
}

// buildSource assembles the cursor chain and punch source for a variant.
func (p *Pipeline) buildSource(variant string) (punchsource.Source, *cursor.Multi, *cursor.Guard, error) {
	lastIDKey, watermarkKey, err := punchsource.CursorKeys(variant)
	if err != nil {
		return nil, nil, nil, err
	}
	primary := cursor.NewConfigStore(p.store, lastIDKey, watermarkKey)
	cache := cursor.NewStateFile(p.cfg.StateDir, variant+".state")
	multi := cursor.NewMulti(primary, cache)

	guard, err := cursor.NewGuard(multi, p.log)
	if err != nil {
		return nil, nil, nil, err
	}

	cfg := *p.cfg
	cfg.PunchSource = variant
	source, err := punchsource.New(&cfg, p.store, guard)
	if err != nil {
		return nil, nil, nil, err
	}
	return source, multi, guard, nil
}

// buildRoster assembles the roster lookup for a variant.
func (p *Pipeline) buildRoster(variant string) (roster.Lookup, error) {
	cfg := *p.cfg
	cfg.RosterSource = variant
	return roster.New(&cfg, p.player)
}

// onPunchSourceChange swaps the punch source when the configured variant
// changes. The new source is built before the old one stops, so a bad
// variant name leaves the running source untouched.
func (p *Pipeline) onPunchSourceChange() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}

	variant := p.store.String("punch_source")
	if variant == "" || variant == p.punchVariant {
		return
	}
	ctx := p.runCtx

	source, cursorStore, guard, err := p.buildSource(variant)
	if err != nil {
		p.log.Error(ctx, "cannot switch punch source",
			logger.String("variant", variant), logger.Error(err))
		return
	}

	if err := p.source.Stop(); err != nil {
		p.log.Warn(ctx, "failed to stop punch source", logger.Error(err))
	}
	if p.cursorStore != nil {
		if err := p.cursorStore.Close(); err != nil {
			p.log.Warn(ctx, "failed to remove cursor state file", logger.Error(err))
		}
	}

	p.source, p.cursorStore, p.guard = source, cursorStore, guard
	p.source.AddListener(&queueListener{q: p.punchQueue, log: p.log})
	if err := p.source.Start(ctx); err != nil {
		p.log.Error(ctx, "failed to start punch source",
			logger.String("variant", variant), logger.Error(err))
		return
	}

	p.punchVariant = variant
	p.log.Info(ctx, "punch source switched", logger.String("variant", variant))
}

// onRosterSourceChange swaps the roster lookup when the configured
// variant changes, keeping lookups available throughout.
func (p *Pipeline) onRosterSourceChange() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}

	variant := p.store.String("roster_source")
	if variant == "" || variant == p.rosterVariant {
		return
	}
	ctx := p.runCtx

	next, err := p.buildRoster(variant)
	if err != nil {
		p.log.Error(ctx, "cannot switch roster",
			logger.String("variant", variant), logger.Error(err))
		return
	}
	if err := next.Start(ctx); err != nil {
		p.log.Error(ctx, "failed to start roster",
			logger.String("variant", variant), logger.Error(err))
		return
	}

	old := p.rosterSwitch.swap(next)
	if err := old.Stop(); err != nil {
		p.log.Warn(ctx, "failed to stop roster", logger.Error(err))
	}

	p.rosterVariant = variant
	p.enricher.SetPreferLookup(variant != config.RosterSourceOLA)
	p.log.Info(ctx, "roster switched", logger.String("variant", variant))
}

// rosterSwitch lets the pipeline replace the roster behind the running
// enrichment stage.
type rosterSwitch struct {
	mu    sync.RWMutex
	inner roster.Lookup
}

func newRosterSwitch(inner roster.Lookup) *rosterSwitch {
	return &rosterSwitch{inner: inner}
}

func (r *rosterSwitch) get() roster.Lookup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inner
}

func (r *rosterSwitch) swap(next roster.Lookup) roster.Lookup {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.inner
	r.inner = next
	return old
}

func (r *rosterSwitch) Start(ctx context.Context) error { return r.get().Start(ctx) }
func (r *rosterSwitch) Stop() error                     { return r.get().Stop() }
func (r *rosterSwitch) IsRunning() bool                 { return r.get().IsRunning() }

func (r *rosterSwitch) LookupCard(ctx context.Context, card string) (roster.Entry, error) {
	return r.get().LookupCard(ctx, card)
}

// Status returns the snapshot served on the ops endpoint.
func (p *Pipeline) Status() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := map[string]interface{}{
		"running":       p.started,
		"punch_source":  p.punchVariant,
		"roster_source": p.rosterVariant,
	}
	if !p.started {
		return status
	}

	ctx := context.Background()
	status["punch_queue_len"] = p.punchQueue.Len(ctx)
	status["announce_queue_len"] = p.announceQueue.Len(ctx)
	status["source_running"] = p.source.IsRunning()
	status["roster_running"] = p.roster.IsRunning()
	if p.guard != nil {
		cur := p.guard.Cursor()
		status["cursor_last_id"] = cur.LastID
		if cur.Watermark != "" {
			status["cursor_watermark"] = cur.Watermark
		}
	}
	return status
}
