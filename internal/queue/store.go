package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested queue item does not exist.
var ErrNotFound = errors.New("queue item not found")

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database under dir and applies
// the schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure queue directory: %w", err)
	}

	dbPath := filepath.Join(dir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

const itemColumns = `id, source_path, disc_title, status, title_count, selected_titles,
	progress_stage, progress_message, error_message, created_at, updated_at`

// Add inserts a new pending item for a disc source. A source that already
// has a live (non-terminal) item is rejected by the unique index.
func (s *Store) Add(ctx context.Context, sourcePath, discTitle string) (*Item, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO queue_items (source_path, disc_title, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sourcePath, discTitle, StatusPending, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert queue item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches one item.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	return scanItem(row)
}

// List returns all items, oldest first.
func (s *Store) List(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM queue_items ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// NextWithStatus returns the oldest item in the given status, or nil.
func (s *Store) NextWithStatus(ctx context.Context, status Status) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY id ASC LIMIT 1`,
		status)
	item, err := scanItem(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return item, err
}

// SetStatus moves an item into a new status, clearing any prior error when
// the status is not failed.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status) error {
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("queue: unknown status %q", status)
	}
	return s.update(ctx, id,
		`UPDATE queue_items
		 SET status = ?, error_message = CASE WHEN ? = 'failed' THEN error_message ELSE '' END, updated_at = ?
		 WHERE id = ?`,
		status, status, now(), id)
}

// SetAnalyzed records the analysis result and moves the item to analyzed.
func (s *Store) SetAnalyzed(ctx context.Context, id int64, discTitle string, titleCount int) error {
	return s.update(ctx, id,
		`UPDATE queue_items SET status = ?, disc_title = ?, title_count = ?, updated_at = ? WHERE id = ?`,
		StatusAnalyzed, discTitle, titleCount, now(), id)
}

// SetSelectedTitles records which analyzed titles should be processed.
func (s *Store) SetSelectedTitles(ctx context.Context, id int64, titles []int) error {
	encoded, err := encodeTitles(titles)
	if err != nil {
		return err
	}
	return s.update(ctx, id,
		`UPDATE queue_items SET selected_titles = ?, updated_at = ? WHERE id = ?`,
		encoded, now(), id)
}

// SetProgress updates the in-flight progress marker.
func (s *Store) SetProgress(ctx context.Context, id int64, stage, message string) error {
	return s.update(ctx, id,
		`UPDATE queue_items SET progress_stage = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		stage, message, now(), id)
}

// MarkFailed moves an item to failed with the given reason.
func (s *Store) MarkFailed(ctx context.Context, id int64, reason string) error {
	return s.update(ctx, id,
		`UPDATE queue_items SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, reason, now(), id)
}

// MarkStopped moves an item to stopped. Used when processing is cancelled
// rather than broken.
func (s *Store) MarkStopped(ctx context.Context, id int64, reason string) error {
	return s.update(ctx, id,
		`UPDATE queue_items SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusStopped, reason, now(), id)
}

// Clear removes terminal items. With all set, every item is removed.
func (s *Store) Clear(ctx context.Context, all bool) (int64, error) {
	query := `DELETE FROM queue_items WHERE status IN ('completed', 'failed', 'stopped')`
	if all {
		query = `DELETE FROM queue_items`
	}
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

// RecoverInFlight rolls items stuck in transient statuses back to their
// stable predecessors. Called once on startup.
func (s *Store) RecoverInFlight(ctx context.Context) (int64, error) {
	var recovered int64
	for _, transition := range startupRollbacks {
		res, err := s.db.ExecContext(ctx,
			`UPDATE queue_items SET status = ?, updated_at = ? WHERE status = ?`,
			transition.to, now(), transition.from)
		if err != nil {
			return recovered, fmt.Errorf("recover %s items: %w", transition.from, err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return recovered, fmt.Errorf("rows affected: %w", err)
		}
		recovered += count
	}
	return recovered, nil
}

func (s *Store) update(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update queue item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("queue item %d: %w", id, ErrNotFound)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item      Item
		status    string
		selected  string
		createdAt string
		updatedAt string
	)
	err := row.Scan(
		&item.ID, &item.SourcePath, &item.DiscTitle, &status, &item.TitleCount, &selected,
		&item.ProgressStage, &item.ProgressMessage, &item.ErrorMessage, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan queue item: %w", err)
	}
	item.Status = Status(status)
	if item.SelectedTitles, err = decodeTitles(selected); err != nil {
		return nil, err
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue items: %w", err)
	}
	return items, nil
}

func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return parsed, nil
}
