package app

import (
	"fmt"
	"log/slog"

	"middag/internal/config"
	"middag/internal/database"
	"middag/internal/menu"
	"middag/internal/metrics"
	"middag/internal/storage"
)

// Backend is the persistence selected by configuration. The SQLite database
// is always opened because generation metrics live there.
type Backend struct {
	DB      *database.DB
	Store   storage.BlobStore
	Metrics *metrics.Store
}

// OpenBackend opens the database and the configured blob store.
func OpenBackend(cfg *config.Config) (*Backend, error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var store storage.BlobStore
	switch cfg.StoreBackend {
	case config.BackendFile:
		store, err = storage.NewFileStore(cfg.ShareDir)
		if err != nil {
			db.Close()
			return nil, err
		}
	default:
		store = storage.NewSQLiteStore(db.SQL)
	}

	return &Backend{DB: db, Store: store, Metrics: metrics.NewStore(db.SQL)}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.DB.Close()
}

// NewMenuLoader returns a cached loader for the configured menu source.
func NewMenuLoader(cfg *config.Config, logger *slog.Logger) *menu.Cache {
	return menu.NewCache(menu.NewClient(cfg.MenuURL, cfg.MenuFile), cfg.MenuCacheTTL, logger)
}
