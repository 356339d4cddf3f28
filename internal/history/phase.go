package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DaemonState is the single-row record of what the daemon is doing.
type DaemonState struct {
	Phase     string
	PID       int
	RunID     string
	Detail    string
	UpdatedAt time.Time
}

// SetPhase replaces the daemon state row.
func (s *Store) SetPhase(ctx context.Context, state DaemonState) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO daemon_state (id, phase, pid, run_id, detail, updated_at) VALUES (1, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET phase = excluded.phase, pid = excluded.pid,
             run_id = excluded.run_id, detail = excluded.detail, updated_at = excluded.updated_at`,
		state.Phase, state.PID, nullableString(state.RunID), nullableString(state.Detail), s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("set phase: %w", err)
	}
	return nil
}

// Phase returns the daemon state row, or nil if the daemon never ran.
func (s *Store) Phase(ctx context.Context) (*DaemonState, error) {
	var (
		state     DaemonState
		runID     sql.NullString
		detail    sql.NullString
		updatedAt string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT phase, pid, run_id, detail, updated_at FROM daemon_state WHERE id = 1`,
	).Scan(&state.Phase, &state.PID, &runID, &detail, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read phase: %w", err)
	}
	state.RunID = runID.String
	state.Detail = detail.String
	if state.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &state, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
