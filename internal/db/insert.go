package db

import (
	"context"

	"github.com/rotisserie/eris"
)

// InsertIfAbsent executes an INSERT ... ON CONFLICT DO NOTHING statement and
// reports whether a row was actually written. Re-running the same insert is a
// no-op, never an error; the pipeline's idempotence rests on this.
func InsertIfAbsent(ctx context.Context, pool Pool, sql string, args ...any) (bool, error) {
	tag, err := pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, eris.Wrap(err, "db: insert if absent")
	}
	return tag.RowsAffected() > 0, nil
}
