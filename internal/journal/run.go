package journal

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/modkit/internal/ir"
)

// Run statuses.
const (
	StatusOK       = "ok"
	StatusNoOutput = "no-output"
	StatusFailed   = "failed"
)

// Run is one recorded tool invocation.
type Run struct {
	ID            string
	Seq           int64
	Tool          string
	Pipeline      string
	Input         string
	Output        string
	Passes        []string
	Status        string
	Error         string
	InputHash     string
	OutputHash    string
	ToolVersion   string
	FormatVersion int
	Stages        []Stage
}

// Stage is the outcome of one pipeline stage within a run.
type Stage struct {
	Name        string
	Granularity string
	Units       int
	Changed     bool
}

func marshalPasses(passes []string) (string, error) {
	data, err := ir.MarshalCanonical(ir.Strings(passes))
	if err != nil {
		return "", fmt.Errorf("marshal passes: %w", err)
	}
	return string(data), nil
}

func unmarshalPasses(data string) ([]string, error) {
	passes := []string{}
	if data == "" {
		return passes, nil
	}
	if err := json.Unmarshal([]byte(data), &passes); err != nil {
		return nil, fmt.Errorf("unmarshal passes: %w", err)
	}
	return passes, nil
}
