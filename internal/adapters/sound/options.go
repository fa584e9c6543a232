package sound

// Option applies a configuration option to the player.
type Option func(*MPG123)

// WithBinary sets an explicit player binary, skipping PATH lookup.
func WithBinary(bin string) Option {
	return func(p *MPG123) {
		if bin != "" {
			p.binary = bin
		}
	}
}

// WithDefaultLanguage sets the language used when a caller passes none.
func WithDefaultLanguage(lang string) Option {
	return func(p *MPG123) {
		if lang != "" {
			p.defaultLang = lang
		}
	}
}

// WithEnabled toggles playback. When disabled, Play is a logged no-op.
func WithEnabled(enabled bool) Option {
	return func(p *MPG123) {
		p.enabled = enabled
	}
}
