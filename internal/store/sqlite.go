package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/polittalk/talkwatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local runs
// without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "talkwatch.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS appearances (
	show          TEXT NOT NULL,
	episode_date  TEXT NOT NULL,
	politician_id TEXT NOT NULL,
	name          TEXT NOT NULL,
	party_id      TEXT,
	party         TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (show, episode_date, politician_id)
);

CREATE TABLE IF NOT EXISTS episode_links (
	show         TEXT NOT NULL,
	episode_date TEXT NOT NULL,
	url          TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (show, episode_date)
);

CREATE TABLE IF NOT EXISTS topic_tags (
	show         TEXT NOT NULL,
	episode_date TEXT NOT NULL,
	topic        TEXT NOT NULL,
	PRIMARY KEY (show, episode_date, topic)
);

CREATE TABLE IF NOT EXISTS crawl_runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	summary     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_appearances_politician ON appearances(politician_id);
CREATE INDEX IF NOT EXISTS idx_crawl_runs_started ON crawl_runs(started_at DESC);
`

// sqliteDate renders a calendar date the way the schema stores it.
func sqliteDate(t time.Time) string {
	return model.Day(t).Format("2006-01-02")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertAppearance(ctx context.Context, a model.Appearance) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO appearances (show, episode_date, politician_id, name, party_id, party)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Show, sqliteDate(a.EpisodeDate), a.PoliticianID, a.Name, nullable(a.PartyID), nullable(a.Party),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert appearance %s/%s", a.Show, a.PoliticianID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) InsertEpisodeLink(ctx context.Context, l model.EpisodeLink) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO episode_links (show, episode_date, url) VALUES (?, ?, ?)`,
		l.Show, sqliteDate(l.EpisodeDate), l.URL,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert episode link %s", l.Show)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) InsertTopicTags(ctx context.Context, show string, date time.Time, topics []model.Topic) (int, error) {
	count := 0
	for _, topic := range topics {
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO topic_tags (show, episode_date, topic) VALUES (?, ?, ?)`,
			show, sqliteDate(date), string(topic),
		)
		if err != nil {
			return count, eris.Wrapf(err, "sqlite: insert topic tag %s", topic)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			count++
		}
	}
	return count, nil
}

func (s *SQLiteStore) LatestEpisodeDate(ctx context.Context, show string) (time.Time, bool, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(episode_date) FROM appearances WHERE show = ?`,
		show,
	).Scan(&latest)
	if err != nil {
		return time.Time{}, false, eris.Wrapf(err, "sqlite: latest episode date %s", show)
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, false, nil
	}
	t, err := time.ParseInLocation("2006-01-02", latest.String, time.UTC)
	if err != nil {
		return time.Time{}, false, eris.Wrapf(err, "sqlite: parse episode date %q", latest.String)
	}
	return t, true, nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, rec model.RunRecord) error {
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO crawl_runs (id, mode, started_at, finished_at, summary) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Mode), rec.StartedAt.UTC(), rec.FinishedAt.UTC(), string(summary),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record run %s", rec.ID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, started_at, finished_at, summary
		 FROM crawl_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []model.RunRecord
	for rows.Next() {
		var rec model.RunRecord
		var mode, summary string
		if err := rows.Scan(&rec.ID, &mode, &rec.StartedAt, &rec.FinishedAt, &summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		rec.Mode = model.Mode(mode)
		if err := json.Unmarshal([]byte(summary), &rec.Summary); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal run %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
