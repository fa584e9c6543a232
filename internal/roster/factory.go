package roster

import (
	"database/sql"
	"fmt"

	// Registers the postgres driver used for database rosters.
	_ "github.com/lib/pq"

	"github.com/klasvik/prewarn/internal/adapters/sound"
	"github.com/klasvik/prewarn/internal/config"
)

// New creates the roster lookup selected by cfg.RosterSource.
func New(cfg *config.Config, player sound.Player) (Lookup, error) {
	switch cfg.RosterSource {
	case config.RosterSourceFile:
		return NewFile(cfg.RosterFile.Path, cfg.RosterFile.UpdateSound, player), nil
	case config.RosterSourceOLA:
		db, err := sql.Open("postgres", cfg.RosterDB.DSN)
		if err != nil {
			return nil, err
		}
		return NewDB(db, cfg.RosterDB.EventID, cfg.RosterDB.EventRaceID), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.RosterSource)
	}
}
