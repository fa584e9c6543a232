package stage

import "time"

// EnricherOption applies a configuration option to the Enricher.
type EnricherOption func(*Enricher)

// WithPreferLookup controls whether prejoined punches are re-resolved
// against the start list. Disable when the roster reads the same database
// the punches come from.
func WithPreferLookup(prefer bool) EnricherOption {
	return func(e *Enricher) {
		e.preferLookup.Store(prefer)
	}
}

// AnnouncerOption applies a configuration option to the Announcer.
type AnnouncerOption func(*Announcer)

// WithIntro configures the intro cue played after a quiet period.
func WithIntro(enabled bool, file string, timeout time.Duration) AnnouncerOption {
	return func(a *Announcer) {
		a.introEnabled = enabled
		if file != "" {
			a.introFile = file
		}
		if timeout > 0 {
			a.introTimeout = timeout
		}
	}
}

// WithClock overrides the announcement clock.
func WithClock(now func() time.Time) AnnouncerOption {
	return func(a *Announcer) {
		if now != nil {
			a.now = now
		}
	}
}
