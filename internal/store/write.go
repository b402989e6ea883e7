package store

import (
	"context"
	"fmt"
	"sort"
)

// CreateRun inserts run with the next logical seq and returns the stored
// record. Re-creating an existing ID is a no-op that returns the original.
func (s *Store) CreateRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, fmt.Errorf("create run: empty id")
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	params, err := marshalParams(run.Params)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seq, component, delta, frames, status, params)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Component,
		run.Delta,
		run.Frames,
		string(run.Status),
		params,
	)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	return s.ReadRun(ctx, run.ID)
}

// WriteSample inserts one sample. Duplicate (run, frame, name) keys are
// ignored.
func (s *Store) WriteSample(ctx context.Context, sample Sample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO samples (run_id, frame, name, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, sample.RunID, sample.Frame, sample.Name, sample.Value)
	if err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return nil
}

// WriteFrame inserts every output of one frame in a single transaction,
// in name order.
func (s *Store) WriteFrame(ctx context.Context, runID string, frame int64, outputs map[string]float64) error {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", frame, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, frame, name, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", frame, err)
	}
	defer stmt.Close()

	for _, name := range names {
		if _, err := stmt.ExecContext(ctx, runID, frame, name, outputs[name]); err != nil {
			return fmt.Errorf("write frame %d sample %q: %w", frame, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write frame %d: %w", frame, err)
	}
	return nil
}

// FinishRun records the final status and frame count.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, frames int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, frames = ? WHERE id = ?
	`, string(status), frames, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}
