package persist

import (
	"context"
	"fmt"
	"time"
)

// OnlineRepo maintains the onlineplayer table read by the website.
type OnlineRepo struct {
	db *DB
}

func NewOnlineRepo(db *DB) *OnlineRepo {
	return &OnlineRepo{db: db}
}

// Replace atomically swaps the table contents for names. Players that were
// already listed keep their original on_since.
func (r *OnlineRepo) Replace(ctx context.Context, names []string, now time.Time) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("onlineplayer begin: %w", err)
	}
	defer tx.Rollback()

	since := make(map[string]int64)
	rows, err := tx.QueryContext(ctx, r.db.Rebind(`SELECT on_name, on_since FROM onlineplayer`))
	if err != nil {
		return fmt.Errorf("onlineplayer read: %w", err)
	}
	for rows.Next() {
		var (
			name string
			at   int64
		)
		if err := rows.Scan(&name, &at); err != nil {
			rows.Close()
			return fmt.Errorf("onlineplayer scan: %w", err)
		}
		since[name] = at
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM onlineplayer`)); err != nil {
		return fmt.Errorf("onlineplayer clear: %w", err)
	}
	for _, name := range names {
		at, ok := since[name]
		if !ok {
			at = now.Unix()
		}
		if _, err := tx.ExecContext(ctx,
			r.db.Rebind(`INSERT INTO onlineplayer (on_name, on_since) VALUES ($1, $2)`), name, at,
		); err != nil {
			return fmt.Errorf("onlineplayer insert: %w", err)
		}
	}
	return tx.Commit()
}

// List returns the listed names in alphabetical order.
func (r *OnlineRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(`SELECT on_name FROM onlineplayer ORDER BY on_name`))
	if err != nil {
		return nil, fmt.Errorf("onlineplayer list: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
