package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stimline-cli/internal/model"

	_ "modernc.org/sqlite"
)

// Cache is a local sqlite snapshot of fetched experiments. It lets the
// TUI open the last-known state read-only when the backend is
// unreachable; it is never a write path back to the backend.
type Cache struct {
	db *sql.DB
}

func DefaultCachePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDirName, "cache.sqlite"), nil
}

func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS experiments (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// PutExperiment upserts one fetched experiment snapshot.
func (c *Cache) PutExperiment(ctx context.Context, exp model.ExperimentWithTimeline) error {
	payload, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("encode experiment: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
INSERT INTO experiments (id, payload, fetched_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at;`,
		exp.Experiment.ID, string(payload), time.Now().UTC().Format(time.RFC3339))
	return err
}

// PutExperiments replaces the snapshots for every given experiment in one
// transaction; used after a list fetch.
func (c *Cache) PutExperiments(ctx context.Context, exps []model.ExperimentWithTimeline) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, exp := range exps {
		payload, err := json.Marshal(exp)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode experiment %s: %w", exp.Experiment.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO experiments (id, payload, fetched_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at;`,
			exp.Experiment.ID, string(payload), now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetExperiment returns the cached snapshot for id, if any.
func (c *Cache) GetExperiment(ctx context.Context, id string) (model.ExperimentWithTimeline, bool, error) {
	var payload string
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM experiments WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return model.ExperimentWithTimeline{}, false, nil
	}
	if err != nil {
		return model.ExperimentWithTimeline{}, false, err
	}
	var exp model.ExperimentWithTimeline
	if err := json.Unmarshal([]byte(payload), &exp); err != nil {
		return model.ExperimentWithTimeline{}, false, fmt.Errorf("decode cached experiment %s: %w", id, err)
	}
	return exp, true, nil
}

// ListExperiments returns every cached snapshot, newest fetch first.
func (c *Cache) ListExperiments(ctx context.Context) ([]model.ExperimentWithTimeline, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT payload FROM experiments ORDER BY fetched_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ExperimentWithTimeline
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var exp model.ExperimentWithTimeline
		if err := json.Unmarshal([]byte(payload), &exp); err != nil {
			return nil, fmt.Errorf("decode cached experiment: %w", err)
		}
		out = append(out, exp)
	}
	return out, rows.Err()
}
