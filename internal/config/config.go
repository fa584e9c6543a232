// Package config defines pipeline configuration structures and the
// hot-reloadable configuration store.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load() to layer file/env.
// - Components that need live values hold a *Store and register for changes.
package config

// Source and roster variant names accepted by the factories.
const (
	PunchSourceROC = "roc"
	PunchSourceOLA = "ola"

	RosterSourceFile = "file"
	RosterSourceOLA  = "ola"
)

// Config contains the process configuration snapshot taken at startup.
// Values that must follow configuration-file edits at runtime (cursors,
// control codes, intervals) are read through the Store instead.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// OpsAddr configures the health/metrics HTTP listen address.
	OpsAddr string `koanf:"ops_addr"`

	// QueueSize bounds the punch and announcement queues.
	QueueSize int `koanf:"queue_size"`

	// PunchSource selects the punch source variant: "roc" or "ola".
	PunchSource string `koanf:"punch_source"`

	// RosterSource selects the roster variant: "file" or "ola".
	RosterSource string `koanf:"roster_source"`

	// AnnounceIPOnStartup reads the local IP address aloud at startup.
	AnnounceIPOnStartup bool `koanf:"announce_ip_on_startup"`

	// StateDir holds secondary cursor state files.
	StateDir string `koanf:"state_dir"`

	Sound      SoundConfig      `koanf:"sound"`
	ROC        ROCConfig        `koanf:"roc"`
	OLA        OLAConfig        `koanf:"ola"`
	RosterFile RosterFileConfig `koanf:"roster_file"`
	RosterDB   RosterDBConfig   `koanf:"roster_db"`
}

// SoundConfig configures the audio sink and the intro-cue debounce.
type SoundConfig struct {
	Enabled             bool   `koanf:"enabled"`
	Dir                 string `koanf:"dir"`
	DefaultLanguage     string `koanf:"default_language"`
	IntroEnabled        bool   `koanf:"intro_enabled"`
	IntroTimeoutSeconds int    `koanf:"intro_timeout_seconds"`
	IntroFile           string `koanf:"intro_file"`
	TestFile            string `koanf:"test_file"`
}

// ROCConfig configures the HTTP polling punch source.
type ROCConfig struct {
	URL                  string `koanf:"url"`
	UnitID               string `koanf:"unit_id"`
	LastID               int64  `koanf:"last_id"`
	FromDate             string `koanf:"from_date"`
	FromTime             string `koanf:"from_time"`
	FetchIntervalSeconds int    `koanf:"fetch_interval_seconds"`
	// ControlCodes holds the pre-warning control codes, separated by space.
	ControlCodes string `koanf:"control_codes"`
}

// OLAConfig configures the database polling punch source.
type OLAConfig struct {
	DSN                  string `koanf:"dsn"`
	EventID              int    `koanf:"event_id"`
	EventRaceID          int    `koanf:"event_race_id"`
	ControlIDs           string `koanf:"control_ids"`
	LastModified         string `koanf:"last_modified"`
	LastID               string `koanf:"last_id"`
	FetchIntervalSeconds int    `koanf:"fetch_interval_seconds"`
}

// RosterFileConfig configures the start-list file roster.
type RosterFileConfig struct {
	Path        string `koanf:"path"`
	UpdateSound string `koanf:"update_sound"`
}

// RosterDBConfig configures the database roster lookup.
type RosterDBConfig struct {
	DSN         string `koanf:"dsn"`
	EventID     int    `koanf:"event_id"`
	EventRaceID int    `koanf:"event_race_id"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		OpsAddr:      ":9090",
		QueueSize:    10_000,
		PunchSource:  PunchSourceROC,
		RosterSource: RosterSourceFile,
		StateDir:     "data",
		Sound: SoundConfig{
			Enabled:             true,
			Dir:                 "sounds",
			DefaultLanguage:     "sv",
			IntroEnabled:        true,
			IntroTimeoutSeconds: 10,
			IntroFile:           "ding.mp3",
			TestFile:            "en/Testing.mp3",
		},
		ROC: ROCConfig{
			URL:                  "http://roc.olresultat.se/getpunches.asp",
			FetchIntervalSeconds: 10,
		},
		OLA: OLAConfig{
			FetchIntervalSeconds: 10,
		},
	}
}
