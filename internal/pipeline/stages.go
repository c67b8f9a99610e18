package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/modkit/internal/asm"
	"github.com/roach88/modkit/internal/pass"
	"github.com/roach88/modkit/internal/verify"
)

// VerifierName is the name of the verifier stage.
const VerifierName = "verify"

// DumpStage writes the text form of the module, preceded by a comment
// naming the stage it follows.
type DumpStage struct {
	After string
	W     io.Writer
}

func (d *DumpStage) Name() string                  { return "print-module" }
func (d *DumpStage) Granularity() pass.Granularity { return pass.Module }
func (d *DumpStage) Usage() pass.Usage             { return pass.Usage{PreservesAll: true} }

func (d *DumpStage) Run(_ context.Context, _ pass.Analyses, u pass.Unit) (bool, error) {
	if _, err := fmt.Fprintf(d.W, "// module after %s\n", d.After); err != nil {
		return false, err
	}
	return false, asm.Format(d.W, u.Module)
}

// VerifierStage fails the run with a VerifyFailure if the module is not
// well formed.
type VerifierStage struct{}

func (VerifierStage) Name() string                  { return VerifierName }
func (VerifierStage) Granularity() pass.Granularity { return pass.Module }
func (VerifierStage) Usage() pass.Usage             { return pass.Usage{PreservesAll: true} }

func (VerifierStage) Run(_ context.Context, _ pass.Analyses, u pass.Unit) (bool, error) {
	return false, verify.Check(u.Module)
}
