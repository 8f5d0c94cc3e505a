package repository

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/tinylink/internal/config"
)

// OpenLinkRepository connects to the store selected by cfg.Driver, applies the
// schema and returns the repository with a function releasing the connection.
func OpenLinkRepository(ctx context.Context, cfg config.DBConfig) (LinkRepository, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := NewPostgresDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return NewLinkRepository(db), db.Close, nil

	case config.DriverSQLite:
		db, err := NewSQLiteDB(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return NewSQLiteLinkRepository(db), func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
