package diagcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"ripsergo/internal/ripser"
)

// Entry summarizes one cached diagram.
type Entry struct {
	Key        string    `json:"key"`
	Points     int       `json:"points"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	Dimensions int       `json:"dimensions"`
	Intervals  int       `json:"intervals"`
	Hits       int       `json:"hits"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Stats describes the cache as a whole.
type Stats struct {
	Path      string
	Entries   int
	Intervals int
	Hits      int
	SizeBytes int64
}

// Lookup returns the report stored under key and records the hit.
func (c *Cache) Lookup(ctx context.Context, key string) (ripser.Report, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var report ripser.Report
	err := c.db.QueryRowContext(ctx,
		"SELECT points, value_min, value_max FROM diagrams WHERE cache_key = ?", key,
	).Scan(&report.Points, &report.Min, &report.Max)
	if errors.Is(err, sql.ErrNoRows) {
		return ripser.Report{}, false, nil
	}
	if err != nil {
		return ripser.Report{}, false, fmt.Errorf("lookup diagram: %w", err)
	}

	report.Diagram = ripser.Diagram{}
	dims, err := c.db.QueryContext(ctx, "SELECT dim FROM dimensions WHERE cache_key = ? ORDER BY dim", key)
	if err != nil {
		return ripser.Report{}, false, fmt.Errorf("lookup dimensions: %w", err)
	}
	for dims.Next() {
		var dim int
		if err := dims.Scan(&dim); err != nil {
			_ = dims.Close()
			return ripser.Report{}, false, fmt.Errorf("scan dimension: %w", err)
		}
		report.Diagram[dim] = []ripser.Interval{}
	}
	if err := dims.Close(); err != nil {
		return ripser.Report{}, false, fmt.Errorf("read dimensions: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT dim, birth, death FROM intervals WHERE cache_key = ? ORDER BY dim, seq", key)
	if err != nil {
		return ripser.Report{}, false, fmt.Errorf("lookup intervals: %w", err)
	}
	for rows.Next() {
		var (
			dim   int
			birth float64
			death sql.NullFloat64
		)
		if err := rows.Scan(&dim, &birth, &death); err != nil {
			_ = rows.Close()
			return ripser.Report{}, false, fmt.Errorf("scan interval: %w", err)
		}
		iv := ripser.Interval{Birth: birth, Death: math.NaN()}
		if death.Valid {
			iv.Death = death.Float64
		}
		report.Diagram[dim] = append(report.Diagram[dim], iv)
	}
	if err := rows.Close(); err != nil {
		return ripser.Report{}, false, fmt.Errorf("read intervals: %w", err)
	}

	if err := retryOnBusy(ctx, func() error {
		_, execErr := c.db.ExecContext(ctx,
			"UPDATE diagrams SET hits = hits + 1, last_used_at = ? WHERE cache_key = ?",
			formatTime(time.Now()), key)
		return execErr
	}); err != nil {
		return ripser.Report{}, false, fmt.Errorf("record cache hit: %w", err)
	}
	return report, true, nil
}

// Store replaces any report held under key.
func (c *Cache) Store(ctx context.Context, key string, report ripser.Report) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return retryOnBusy(ctx, func() error {
		return c.storeTx(ctx, key, report)
	})
}

func (c *Cache) storeTx(ctx context.Context, key string, report ripser.Report) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin store tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		"DELETE FROM intervals WHERE cache_key = ?",
		"DELETE FROM dimensions WHERE cache_key = ?",
		"DELETE FROM diagrams WHERE cache_key = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, key); err != nil {
			return fmt.Errorf("replace diagram: %w", err)
		}
	}

	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO diagrams (cache_key, points, value_min, value_max, created_at, last_used_at, hits)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		key, report.Points, report.Min, report.Max, now, now,
	); err != nil {
		return fmt.Errorf("insert diagram: %w", err)
	}

	for _, dim := range report.Diagram.Dimensions() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO dimensions (cache_key, dim) VALUES (?, ?)", key, dim,
		); err != nil {
			return fmt.Errorf("insert dimension %d: %w", dim, err)
		}
		for seq, iv := range report.Diagram[dim] {
			var death any
			if !iv.Unbounded() {
				death = iv.Death
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO intervals (cache_key, dim, seq, birth, death) VALUES (?, ?, ?, ?, ?)",
				key, dim, seq, iv.Birth, death,
			); err != nil {
				return fmt.Errorf("insert interval: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit diagram: %w", err)
	}
	return nil
}

// List returns up to limit entries, most recently used first. A limit of zero
// or less returns every entry.
func (c *Cache) List(ctx context.Context, limit int) ([]Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	query := `SELECT d.cache_key, d.points, d.value_min, d.value_max, d.hits, d.created_at, d.last_used_at,
		(SELECT COUNT(1) FROM dimensions m WHERE m.cache_key = d.cache_key),
		(SELECT COUNT(1) FROM intervals i WHERE i.cache_key = d.cache_key)
		FROM diagrams d ORDER BY d.last_used_at DESC, d.cache_key`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry            Entry
			created, lastUse string
		)
		if err := rows.Scan(&entry.Key, &entry.Points, &entry.Min, &entry.Max, &entry.Hits,
			&created, &lastUse, &entry.Dimensions, &entry.Intervals); err != nil {
			return nil, fmt.Errorf("scan diagram: %w", err)
		}
		entry.CreatedAt = parseTime(created)
		entry.LastUsedAt = parseTime(lastUse)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read diagrams: %w", err)
	}
	return entries, nil
}

// Stats reports entry counts and the database file size.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{Path: c.path}
	if err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1), COALESCE(SUM(hits), 0) FROM diagrams",
	).Scan(&stats.Entries, &stats.Hits); err != nil {
		return Stats{}, fmt.Errorf("count diagrams: %w", err)
	}
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM intervals").Scan(&stats.Intervals); err != nil {
		return Stats{}, fmt.Errorf("count intervals: %w", err)
	}
	if info, err := os.Stat(c.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// Clear removes every entry and returns how many were deleted. It needs the
// exclusive lock and fails with ErrInUse while another process has the cache
// open.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.lock.Unlock(); err != nil {
		return 0, fmt.Errorf("release shared lock: %w", err)
	}
	ok, err := c.lock.TryLock()
	if err != nil || !ok {
		if _, relockErr := c.lock.TryRLock(); relockErr != nil && err == nil {
			err = relockErr
		}
		if err != nil {
			return 0, fmt.Errorf("acquire exclusive lock: %w", err)
		}
		return 0, ErrInUse
	}
	defer func() {
		_ = c.lock.Unlock()
		_, _ = c.lock.TryRLock()
	}()

	var removed int
	err = retryOnBusy(ctx, func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin clear tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM diagrams").Scan(&removed); err != nil {
			return fmt.Errorf("count diagrams: %w", err)
		}
		for _, stmt := range []string{"DELETE FROM intervals", "DELETE FROM dimensions", "DELETE FROM diagrams"} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clear diagrams: %w", err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
