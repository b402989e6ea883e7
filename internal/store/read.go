package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run    Run
		status string
		params []byte
	)
	if err := row.Scan(&run.ID, &run.Seq, &run.Component, &run.Delta, &run.Frames, &status, &params); err != nil {
		return Run{}, err
	}
	run.Status = RunStatus(status)

	p, err := unmarshalParams(params)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	run.Params = p
	return run, nil
}

// ReadRun returns the run with id, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, component, delta, frames, status, params
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run in creation order. Never nil.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, component, delta, frames, status, params
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadSamples returns a run's samples ordered by frame, then name. Never nil.
func (s *Store) ReadSamples(ctx context.Context, runID string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, frame, name, value
		FROM samples
		WHERE run_id = ?
		ORDER BY frame ASC, name COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.RunID, &sm.Frame, &sm.Name, &sm.Value); err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}
		samples = append(samples, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return samples, nil
}

// ReadFrames groups a run's samples by frame, in frame order.
func (s *Store) ReadFrames(ctx context.Context, runID string) ([]Frame, error) {
	samples, err := s.ReadSamples(ctx, runID)
	if err != nil {
		return nil, err
	}

	var frames []Frame
	for _, sm := range samples {
		if len(frames) == 0 || frames[len(frames)-1].Number != sm.Frame {
			frames = append(frames, Frame{Number: sm.Frame, Outputs: map[string]float64{}})
		}
		frames[len(frames)-1].Outputs[sm.Name] = sm.Value
	}
	return frames, nil
}

// ReadSeries returns one output's values across a run, in frame order.
func (s *Store) ReadSeries(ctx context.Context, runID, name string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, frame, name, value
		FROM samples
		WHERE run_id = ? AND name = ?
		ORDER BY frame ASC
	`, runID, name)
	if err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}
	defer rows.Close()

	series := []Sample{}
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.RunID, &sm.Frame, &sm.Name, &sm.Value); err != nil {
			return nil, fmt.Errorf("read series: %w", err)
		}
		series = append(series, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}
	return series, nil
}
