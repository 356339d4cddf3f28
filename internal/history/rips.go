package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of one rip.
type Status string

const (
	StatusRipping   Status = "ripping"
	StatusRipped    Status = "ripped"
	StatusFailed    Status = "failed"
	StatusOffloaded Status = "offloaded"
)

// Rip is one journal row.
type Rip struct {
	ID             int64
	RunID          string
	OutputDir      string
	Device         string
	Status         Status
	ExitCode       *int
	ErrorMessage   string
	StorageDevice  string
	BytesOffloaded int64
	StartedAt      time.Time
	FinishedAt     *time.Time
	OffloadedAt    *time.Time
}

// Duration returns how long the rip ran, or zero while it is still running.
func (r Rip) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ErrNotFound is returned when a run id has no journal row.
var ErrNotFound = errors.New("rip not found")

// StartRip records a rip that has just begun.
func (s *Store) StartRip(ctx context.Context, runID, outputDir, device string, startedAt time.Time) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO rips (run_id, output_dir, device, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, outputDir, device, StatusRipping, startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert rip: %w", err)
	}
	return nil
}

// FinishRip records the outcome of a rip. A nil ripErr marks it ripped,
// anything else marks it failed with the error text.
func (s *Store) FinishRip(ctx context.Context, runID string, exitCode int, ripErr error) error {
	status := StatusRipped
	var message any
	if ripErr != nil {
		status = StatusFailed
		message = ripErr.Error()
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE rips SET status = ?, exit_code = ?, error_message = ?, finished_at = ? WHERE run_id = ?`,
		status, exitCode, message, s.timestamp(), runID,
	)
	if err != nil {
		return fmt.Errorf("finish rip: %w", err)
	}
	return requireRow(res, runID)
}

// MarkOffloaded records that the run directory named outputDir now lives on
// storageDevice. Runs unknown to the journal (ripped before it existed) are
// ignored.
func (s *Store) MarkOffloaded(ctx context.Context, outputDir, storageDevice string, bytes int64) error {
	_, err := s.execWithRetry(ctx,
		`UPDATE rips SET status = ?, storage_device = ?, bytes_offloaded = ?, offloaded_at = ?
         WHERE output_dir = ? AND status IN (?, ?)`,
		StatusOffloaded, storageDevice, bytes, s.timestamp(), outputDir, StatusRipped, StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("mark offloaded: %w", err)
	}
	return nil
}

// Get returns the journal row for runID.
func (s *Store) Get(ctx context.Context, runID string) (*Rip, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), selectRips+` WHERE run_id = ?`, runID)
	rip, err := scanRip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return rip, err
}

// List returns the most recent rips, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Rip, error) {
	query := selectRips + ` ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rips: %w", err)
	}
	defer rows.Close()

	var rips []Rip
	for rows.Next() {
		rip, err := scanRip(rows)
		if err != nil {
			return nil, err
		}
		rips = append(rips, *rip)
	}
	return rips, rows.Err()
}

// Counts returns the number of rips per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM rips GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count rips: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// AbandonRunning marks rips left in the ripping state by a previous process
// as failed. It returns the number of rows changed.
func (s *Store) AbandonRunning(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE rips SET status = ?, error_message = ?, finished_at = ? WHERE status = ?`,
		StatusFailed, "daemon stopped during rip", s.timestamp(), StatusRipping,
	)
	if err != nil {
		return 0, fmt.Errorf("abandon running rips: %w", err)
	}
	return res.RowsAffected()
}

const selectRips = `SELECT id, run_id, output_dir, device, status, exit_code, error_message,
    storage_device, bytes_offloaded, started_at, finished_at, offloaded_at FROM rips`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRip(row rowScanner) (*Rip, error) {
	var (
		rip          Rip
		status       string
		exitCode     sql.NullInt64
		errorMessage sql.NullString
		storage      sql.NullString
		startedAt    string
		finishedAt   sql.NullString
		offloadedAt  sql.NullString
	)
	if err := row.Scan(&rip.ID, &rip.RunID, &rip.OutputDir, &rip.Device, &status, &exitCode,
		&errorMessage, &storage, &rip.BytesOffloaded, &startedAt, &finishedAt, &offloadedAt); err != nil {
		return nil, err
	}
	rip.Status = Status(status)
	if exitCode.Valid {
		code := int(exitCode.Int64)
		rip.ExitCode = &code
	}
	rip.ErrorMessage = errorMessage.String
	rip.StorageDevice = storage.String

	var err error
	if rip.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if rip.FinishedAt, err = parseNullableTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	if rip.OffloadedAt, err = parseNullableTime(offloadedAt); err != nil {
		return nil, fmt.Errorf("parse offloaded_at: %w", err)
	}
	return &rip, nil
}

func parseNullableTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func requireRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}
