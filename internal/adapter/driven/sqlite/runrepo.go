package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunIDStore = (*RunRepo)(nil)

// RunRepo is the SQLite ledger of the current benchmark batch. It keeps one
// row per run handle so outcomes survive alongside the IDs.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Save atomically replaces every stored handle of c.Provider with c.Handles.
func (r *RunRepo) Save(ctx context.Context, c *model.Correlation) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const deleteQuery = `DELETE FROM benchmark_runs WHERE provider = ?`
	if _, err := tx.ExecContext(ctx, deleteQuery, string(c.Provider)); err != nil {
		return fmt.Errorf("delete runs for %s: %w", c.Provider, err)
	}

	const insertQuery = `
		INSERT INTO benchmark_runs (provider, position, run_id, display_name, status, outcome, window_start, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	windowStart := c.WindowStart.UTC().Format(time.RFC3339Nano)
	recordedAt := time.Now().UTC().Format(time.RFC3339Nano)

	for i, h := range c.Handles {
		status := h.Status
		if status == "" {
			status = model.RunStatusPending
		}

		if _, err := tx.ExecContext(ctx, insertQuery,
			string(c.Provider), i, string(h.RunID), h.DisplayName,
			string(status), h.Outcome, windowStart, recordedAt,
		); err != nil {
			return fmt.Errorf("insert run %s/%s: %w", c.Provider, h.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Load returns the stored run IDs for provider in dispatch order.
func (r *RunRepo) Load(ctx context.Context, provider model.Provider) ([]model.RunID, error) {
	c, err := r.Correlation(ctx, provider)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	return c.RunIDs(), nil
}

// Correlation rebuilds the stored correlation of provider, including the
// latest known status and outcome of each handle. Returns nil, nil when
// nothing was stored.
func (r *RunRepo) Correlation(ctx context.Context, provider model.Provider) (*model.Correlation, error) {
	const query = `
		SELECT run_id, display_name, status, outcome, window_start
		FROM benchmark_runs
		WHERE provider = ?
		ORDER BY position
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, string(provider))
	if err != nil {
		return nil, fmt.Errorf("query runs for %s: %w", provider, err)
	}
	defer rows.Close()

	var c *model.Correlation
	for rows.Next() {
		h, windowStart, err := scanRunHandle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run for %s: %w", provider, err)
		}
		h.Provider = provider

		if c == nil {
			c = &model.Correlation{Provider: provider, WindowStart: windowStart}
		}
		c.Handles = append(c.Handles, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs for %s: %w", provider, err)
	}

	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunHandle(s scanner) (model.RunHandle, time.Time, error) {
	var (
		h           model.RunHandle
		runID       string
		status      string
		windowStart string
	)

	if err := s.Scan(&runID, &h.DisplayName, &status, &h.Outcome, &windowStart); err != nil {
		return model.RunHandle{}, time.Time{}, err
	}

	ts, err := parseTime(windowStart)
	if err != nil {
		return model.RunHandle{}, time.Time{}, fmt.Errorf("parse window_start: %w", err)
	}

	h.RunID = model.RunID(runID)
	h.Status = model.RunStatus(status)

	return h, ts, nil
}

// parseTime attempts to parse a time string in common SQLite formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
