package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

const runColumns = `id, seq, tool, pipeline, input, output, passes, status, error,
	input_hash, output_hash, tool_version, format_version`

type scanner interface {
	Scan(dest ...any) error
}

// Get returns the run with the given ID, including its stages.
func (j *Journal) Get(ctx context.Context, id string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	if r.Stages, err = j.stages(ctx, r.ID); err != nil {
		return Run{}, err
	}
	return r, nil
}

// List returns all runs ordered by seq. Stages are not loaded.
// Returns an empty slice (not nil) if the journal is empty.
func (j *Journal) List(ctx context.Context) ([]Run, error) {
	return j.query(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq ASC`)
}

// History returns the runs whose input module hashed to inputHash,
// ordered by seq.
func (j *Journal) History(ctx context.Context, inputHash string) ([]Run, error) {
	return j.query(ctx, `SELECT `+runColumns+` FROM runs WHERE input_hash = ? ORDER BY seq ASC`, inputHash)
}

func (j *Journal) query(ctx context.Context, q string, args ...any) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func (j *Journal) stages(ctx context.Context, runID string) ([]Stage, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT name, granularity, units, changed
		FROM stages
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	stages := []Stage{}
	for rows.Next() {
		var st Stage
		if err := rows.Scan(&st.Name, &st.Granularity, &st.Units, &st.Changed); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return stages, nil
}

func scanRun(s scanner) (Run, error) {
	var (
		r      Run
		passes string
	)
	err := s.Scan(&r.ID, &r.Seq, &r.Tool, &r.Pipeline, &r.Input, &r.Output, &passes,
		&r.Status, &r.Error, &r.InputHash, &r.OutputHash, &r.ToolVersion, &r.FormatVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if r.Passes, err = unmarshalPasses(passes); err != nil {
		return Run{}, err
	}
	return r, nil
}
