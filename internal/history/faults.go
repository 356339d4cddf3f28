package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Fault is one error that latched the error light.
type Fault struct {
	ID         int64
	Stage      string
	RunID      string
	Severity   string
	Message    string
	RecordedAt time.Time
}

// RecordFault appends a fault. RecordedAt is filled in by the store.
func (s *Store) RecordFault(ctx context.Context, fault Fault) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO faults (stage, run_id, severity, message, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		fault.Stage, nullableString(fault.RunID), fault.Severity, fault.Message, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("record fault: %w", err)
	}
	return nil
}

// LastFault returns the most recent fault, or nil if none was recorded.
func (s *Store) LastFault(ctx context.Context) (*Fault, error) {
	var (
		fault      Fault
		runID      sql.NullString
		recordedAt string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, stage, run_id, severity, message, recorded_at FROM faults ORDER BY id DESC LIMIT 1`,
	).Scan(&fault.ID, &fault.Stage, &runID, &fault.Severity, &fault.Message, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read last fault: %w", err)
	}
	fault.RunID = runID.String
	if fault.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return nil, fmt.Errorf("parse recorded_at: %w", err)
	}
	return &fault, nil
}
