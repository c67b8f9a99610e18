// Command modas assembles a text module into a verified binary module.
//
// Usage:
//
//	modas [-o out.bc] [-f] [-d] [--disable-compression] [--disable-verify] [input.ll]
package main

import (
	"context"
	"os"

	"github.com/roach88/modkit/internal/cli"
	"github.com/roach88/modkit/internal/output"
)

func main() {
	cmd := cli.NewAssembleCommand(&cli.RootOptions{Cleanup: output.NewRegistry()})
	os.Exit(cli.Execute(context.Background(), cmd))
}
