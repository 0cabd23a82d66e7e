package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/polittalk/talkwatch/internal/db"
	"github.com/polittalk/talkwatch/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS appearances (
	show          TEXT NOT NULL,
	episode_date  DATE NOT NULL,
	politician_id TEXT NOT NULL,
	name          TEXT NOT NULL,
	party_id      TEXT,
	party         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (show, episode_date, politician_id)
);

CREATE TABLE IF NOT EXISTS episode_links (
	show         TEXT NOT NULL,
	episode_date DATE NOT NULL,
	url          TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (show, episode_date)
);

CREATE TABLE IF NOT EXISTS topic_tags (
	show         TEXT NOT NULL,
	episode_date DATE NOT NULL,
	topic        TEXT NOT NULL,
	PRIMARY KEY (show, episode_date, topic)
);

CREATE TABLE IF NOT EXISTS crawl_runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	summary     JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_appearances_politician ON appearances(politician_id);
CREATE INDEX IF NOT EXISTS idx_appearances_show_date ON appearances(show, episode_date DESC);
CREATE INDEX IF NOT EXISTS idx_crawl_runs_started ON crawl_runs(started_at DESC);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertAppearance(ctx context.Context, a model.Appearance) (bool, error) {
	inserted, err := db.InsertIfAbsent(ctx, s.pool,
		`INSERT INTO appearances (show, episode_date, politician_id, name, party_id, party)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (show, episode_date, politician_id) DO NOTHING`,
		a.Show, model.Day(a.EpisodeDate), a.PoliticianID, a.Name, nullable(a.PartyID), nullable(a.Party),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert appearance %s/%s", a.Show, a.PoliticianID)
	}
	return inserted, nil
}

func (s *PostgresStore) InsertEpisodeLink(ctx context.Context, l model.EpisodeLink) (bool, error) {
	inserted, err := db.InsertIfAbsent(ctx, s.pool,
		`INSERT INTO episode_links (show, episode_date, url)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (show, episode_date) DO NOTHING`,
		l.Show, model.Day(l.EpisodeDate), l.URL,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert episode link %s", l.Show)
	}
	return inserted, nil
}

func (s *PostgresStore) InsertTopicTags(ctx context.Context, show string, date time.Time, topics []model.Topic) (int, error) {
	count := 0
	for _, topic := range topics {
		inserted, err := db.InsertIfAbsent(ctx, s.pool,
			`INSERT INTO topic_tags (show, episode_date, topic)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (show, episode_date, topic) DO NOTHING`,
			show, model.Day(date), string(topic),
		)
		if err != nil {
			return count, eris.Wrapf(err, "postgres: insert topic tag %s", topic)
		}
		if inserted {
			count++
		}
	}
	return count, nil
}

func (s *PostgresStore) LatestEpisodeDate(ctx context.Context, show string) (time.Time, bool, error) {
	// MAX over zero rows yields a single NULL row, hence the pointer scan.
	var latest *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(episode_date) FROM appearances WHERE show = $1`,
		show,
	).Scan(&latest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, eris.Wrapf(err, "postgres: latest episode date %s", show)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return model.Day(*latest), true, nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, rec model.RunRecord) error {
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run summary")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO crawl_runs (id, mode, started_at, finished_at, summary)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, string(rec.Mode), rec.StartedAt, rec.FinishedAt, summary,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record run %s", rec.ID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, mode, started_at, finished_at, summary
		 FROM crawl_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.RunRecord
	for rows.Next() {
		var rec model.RunRecord
		var mode string
		var summary []byte
		if err := rows.Scan(&rec.ID, &mode, &rec.StartedAt, &rec.FinishedAt, &summary); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		rec.Mode = model.Mode(mode)
		if err := json.Unmarshal(summary, &rec.Summary); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal run %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// nullable maps empty strings to NULL so optional party fields stay unset.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*PostgresStore)(nil)
