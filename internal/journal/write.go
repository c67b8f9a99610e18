package journal

import (
	"context"
	"fmt"
)

// Record stores r and its stages in one transaction. ID and Seq are
// assigned here; any values already set on r are overwritten.
func (j *Journal) Record(ctx context.Context, r *Run) error {
	passes, err := marshalPasses(r.Passes)
	if err != nil {
		return err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}
	id := j.newID()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, tool, pipeline, input, output, passes, status, error,
			input_hash, output_hash, tool_version, format_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, seq, r.Tool, r.Pipeline, r.Input, r.Output, passes, r.Status, r.Error,
		r.InputHash, r.OutputHash, r.ToolVersion, r.FormatVersion)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, st := range r.Stages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stages (run_id, idx, name, granularity, units, changed)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, i, st.Name, st.Granularity, st.Units, st.Changed)
		if err != nil {
			return fmt.Errorf("insert stage %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	r.ID = id
	r.Seq = seq
	j.logger.Debug("run recorded", "id", id, "seq", seq, "status", r.Status, "stages", len(r.Stages))
	return nil
}
