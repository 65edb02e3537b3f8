package scrobble

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// RetentionPeriod is how long an entry may wait in the queue before pruning
// gives up on it. Measured from the enqueue time, not the play time.
const RetentionPeriod = 14 * 24 * time.Hour

// Queue is the durable FIFO of plays awaiting submission. Every mutation is
// a committed SQLite write, so the queue survives crashes and restarts
// without an explicit save step. Entries are only removed by MarkCompleted
// or PruneExpired; a dequeue leaves them in place for the next cycle.
type Queue struct {
	db *sql.DB
}

// NewQueue opens or creates the queue database at dbPath. Use ":memory:"
// for an ephemeral queue in tests.
func NewQueue(dbPath string) (*Queue, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	// Single writer, WAL for crash safety, generous busy timeout because
	// CLI commands may poke the queue while the daemon runs.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA cache_size=-64000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS queue (
		id          TEXT PRIMARY KEY,
		artist      TEXT NOT NULL,
		title       TEXT NOT NULL,
		album       TEXT NOT NULL DEFAULT '',
		duration    INTEGER NOT NULL DEFAULT 0,
		started_at  INTEGER NOT NULL,
		enqueued_at INTEGER NOT NULL,
		attempts    INTEGER NOT NULL DEFAULT 0,
		last_error  TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_queue_enqueued_at ON queue(enqueued_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create queue schema: %w", err)
	}

	return &Queue{db: db}, nil
}

// Close closes the underlying database
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue appends a play to the queue. Duplicate plays are accepted as-is;
// deduplication is the services' job, not the queue's.
func (q *Queue) Enqueue(ctx context.Context, track Track) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO queue (id, artist, title, album, duration, started_at, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		track.Artist,
		track.Title,
		track.Album,
		int64(track.Duration/time.Second),
		track.StartedAt.Unix(),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue scrobble: %w", err)
	}
	return nil
}

// Dequeue returns up to limit entries, oldest first, without removing them.
// Entries leave the queue only through MarkCompleted or PruneExpired.
func (q *Queue) Dequeue(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, artist, title, album, duration, started_at, enqueued_at, attempts, last_error
		FROM queue
		ORDER BY enqueued_at ASC, rowid ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// All returns every queued entry, newest first, for display purposes
func (q *Queue) All(ctx context.Context) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, artist, title, album, duration, started_at, enqueued_at, attempts, last_error
		FROM queue
		ORDER BY enqueued_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			duration   int64
			startedAt  int64
			enqueuedAt int64
		)
		if err := rows.Scan(
			&e.ID,
			&e.Track.Artist,
			&e.Track.Title,
			&e.Track.Album,
			&duration,
			&startedAt,
			&enqueuedAt,
			&e.Attempts,
			&e.LastError,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		e.Track.Duration = time.Duration(duration) * time.Second
		e.Track.StartedAt = time.Unix(startedAt, 0)
		e.EnqueuedAt = time.Unix(enqueuedAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue entries: %w", err)
	}
	return entries, nil
}

// MarkCompleted removes the identified entries. Unknown ids are ignored, so
// a crash between submission and completion at worst resubmits.
func (q *Queue) MarkCompleted(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM queue WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to remove entry %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}
	return nil
}

// MarkFailed records a failed submission round for the identified entries.
// The entries stay queued; attempts and last_error are bookkeeping for the
// queue inspection commands.
func (q *Queue) MarkFailed(ctx context.Context, ids []string, reason string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "UPDATE queue SET attempts = attempts + 1, last_error = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare update statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, reason, id); err != nil {
			return fmt.Errorf("failed to mark entry %s failed: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit failure marks: %w", err)
	}
	return nil
}

// PruneExpired removes entries enqueued more than RetentionPeriod ago and
// returns how many were dropped.
func (q *Queue) PruneExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-RetentionPeriod).Unix()

	result, err := q.db.ExecContext(ctx, "DELETE FROM queue WHERE enqueued_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune expired entries: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned entries: %w", err)
	}
	return removed, nil
}

// Count returns the number of queued entries
func (q *Queue) Count(ctx context.Context) (int, error) {
	var count int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count queue entries: %w", err)
	}
	return count, nil
}
