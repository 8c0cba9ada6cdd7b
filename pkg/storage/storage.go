// Package storage persists dated compliance snapshots in sqlite so trend
// reports can source from past runs instead of a directory of CSV exports.
package storage

import (
	"context"
	"database/sql"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/mdmtools/patchscope/pkg/trend"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS snapshots (
  id            INTEGER PRIMARY KEY,
  run_date      TEXT NOT NULL,
  entity_key    TEXT NOT NULL,
  label         TEXT,
  failure_count INTEGER NOT NULL,
  UNIQUE(run_date, entity_key)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_date ON snapshots(run_date);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// SaveSnapshot records one run's failure counts under dateKey. Re-running on
// the same date replaces that date's rows.
func (d *DB) SaveSnapshot(ctx context.Context, dateKey string, points []trend.Point) error {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM snapshots WHERE run_date = ?", dateKey); err != nil {
		return err
	}
	for _, p := range points {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO snapshots(run_date, entity_key, label, failure_count) VALUES(?,?,?,?)",
			dateKey, p.EntityKey, p.Label, p.Failures); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListSnapshots returns the lastN most recent snapshots ordered oldest
// first. lastN <= 0 returns all of them.
func (d *DB) ListSnapshots(ctx context.Context, lastN int) ([]trend.Snapshot, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT run_date, entity_key, label, failure_count FROM snapshots ORDER BY run_date, entity_key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDate := make(map[string][]trend.Point)
	for rows.Next() {
		var (
			date, key string
			label     sql.NullString
			failures  int
		)
		if err := rows.Scan(&date, &key, &label, &failures); err != nil {
			return nil, err
		}
		byDate[date] = append(byDate[date], trend.Point{
			EntityKey: key,
			Label:     label.String,
			DateKey:   date,
			Failures:  failures,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if lastN > 0 && len(dates) > lastN {
		dates = dates[len(dates)-lastN:]
	}

	snapshots := make([]trend.Snapshot, 0, len(dates))
	for _, date := range dates {
		snapshots = append(snapshots, trend.Snapshot{Source: "db", DateKey: date, Points: byDate[date]})
	}
	return snapshots, nil
}
