package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/klasvik/prewarn/internal/adapters/sound"
	"github.com/klasvik/prewarn/internal/domain/model"
	"github.com/klasvik/prewarn/pkg/logger"
	"github.com/klasvik/prewarn/pkg/metrics"
)

// AnnouncementSource defines how the playback stage receives
// announcements.
type AnnouncementSource interface {
	Dequeue(ctx context.Context) <-chan model.Announcement
}

// Announcer plays queued announcements. When the speaker has been quiet
// long enough, an intro cue is played first so the crew looks up before
// the bib number is read.
type Announcer struct {
	queue  AnnouncementSource
	player sound.Player

	introEnabled bool
	introTimeout time.Duration
	introFile    string

	// lastAnnouncement is only touched by the Run goroutine.
	lastAnnouncement time.Time
	now              func() time.Time

	shutdown chan struct{}
	done     chan struct{}

	log logger.Logger
}

// NewAnnouncer creates the playback stage.
func NewAnnouncer(q AnnouncementSource, player sound.Player, opts ...AnnouncerOption) *Announcer {
	a := &Announcer{
		queue:        q,
		player:       player,
		introEnabled: true,
		introTimeout: 10 * time.Second,
		introFile:    "ding.mp3",
		now:          time.Now,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		log:          logger.Named("stage.announce"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run consumes announcements until ctx is canceled or Shutdown is called.
func (a *Announcer) Run(ctx context.Context) {
	defer close(a.done)

	announcements := a.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.shutdown:
			return
		case ann, ok := <-announcements:
			if !ok {
				return
			}
			a.play(ctx, ann)
		}
	}
}

// Shutdown gracefully stops the stage.
func (a *Announcer) Shutdown(ctx context.Context) error {
	close(a.shutdown)
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		a.log.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// play voices one announcement. The quiet-period clock restarts after
// every announcement whether or not playback succeeded.
func (a *Announcer) play(ctx context.Context, ann model.Announcement) {
	if a.introEnabled && a.quietLongEnough() {
		if err := a.player.Play(ctx, a.introFile); err != nil {
			a.log.Warn(ctx, "failed to play intro cue", logger.Error(err))
		} else {
			metrics.RecordIntroCue()
		}
	}

	file := ann.SoundKey + ".mp3"
	if err := a.player.PlayLang(ctx, ann.Language, file); err != nil {
		a.log.Warn(ctx, "failed to play announcement",
			logger.String("sound", file),
			logger.Error(err))
	} else {
		metrics.RecordAnnouncement()
	}

	a.lastAnnouncement = a.now()
}

func (a *Announcer) quietLongEnough() bool {
	if a.lastAnnouncement.IsZero() {
		return true
	}
	return a.now().Sub(a.lastAnnouncement) >= a.introTimeout
}
