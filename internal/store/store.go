// Package store persists appearances, episode links, and topic tags behind
// idempotent write operations.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/polittalk/talkwatch/internal/config"
	"github.com/polittalk/talkwatch/internal/model"
)

// Store is the persistence interface for the crawl pipeline. All insert
// operations are idempotent: repeating a call with identical arguments leaves
// the data unchanged and is never an error.
type Store interface {
	// InsertAppearance records one politician in one episode. Returns false
	// when the (show, episode date, politician) tuple already exists.
	InsertAppearance(ctx context.Context, a model.Appearance) (bool, error)

	// InsertEpisodeLink records the canonical URL of an episode. Only called
	// for episodes that yielded at least one resolved politician.
	InsertEpisodeLink(ctx context.Context, l model.EpisodeLink) (bool, error)

	// InsertTopicTags records the topics an episode touched, returning how
	// many tags were actually new.
	InsertTopicTags(ctx context.Context, show string, date time.Time, topics []model.Topic) (int, error)

	// LatestEpisodeDate returns the checkpoint for a show: the maximum
	// episode date already recorded, with ok=false for a show without
	// history.
	LatestEpisodeDate(ctx context.Context, show string) (time.Time, bool, error)

	// RecordRun stores one pipeline run summary for operational history.
	RecordRun(ctx context.Context, rec model.RunRecord) error

	// ListRuns returns the most recent run records, newest first.
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)

	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	Close() error
}

// Open creates a Store from configuration, selecting the backend by driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
