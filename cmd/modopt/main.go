// Command modopt runs analysis and transformation passes over a binary
// module.
//
// Usage:
//
//	modopt [-P pass]... [--analyze] [-p] [-q] [-o out.bc] [input.bc]
//	modopt --list-passes
package main

import (
	"context"
	"os"

	"github.com/roach88/modkit/internal/cli"
	"github.com/roach88/modkit/internal/output"
)

func main() {
	cmd := cli.NewOptimizeCommand(&cli.RootOptions{Cleanup: output.NewRegistry()})
	os.Exit(cli.Execute(context.Background(), cmd))
}
