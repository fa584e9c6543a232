package punchsource

import (
	"database/sql"
	"fmt"

	// Registers the postgres driver used by the database source.
	_ "github.com/lib/pq"

	"github.com/klasvik/prewarn/internal/config"
	"github.com/klasvik/prewarn/internal/cursor"
)

// New creates the punch source selected by cfg.PunchSource. The guard
// must be built over the matching cursor keys.
func New(cfg *config.Config, store *config.Store, guard *cursor.Guard) (Source, error) {
	switch cfg.PunchSource {
	case config.PunchSourceROC:
		return NewROC(cfg, store, guard), nil
	case config.PunchSourceOLA:
		db, err := sql.Open("postgres", cfg.OLA.DSN)
		if err != nil {
			return nil, err
		}
		return NewOLA(cfg, store, guard, db), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.PunchSource)
	}
}

// CursorKeys returns the config keys that hold the cursor for the given
// source variant.
func CursorKeys(source string) (lastIDKey, watermarkKey string, err error) {
	switch source {
	case config.PunchSourceROC:
		return "roc.last_id", "", nil
	case config.PunchSourceOLA:
		return "ola.last_id", "ola.last_modified", nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
}
