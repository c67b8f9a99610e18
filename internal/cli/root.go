package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/modkit/internal/diag"
	"github.com/roach88/modkit/internal/output"
)

// RootOptions holds settings shared by both tools.
type RootOptions struct {
	Verbose bool

	// IsTerminal overrides terminal detection on the output stream (for
	// testing). If nil, output.IsTerminal is used.
	IsTerminal func(io.Writer) bool

	// Cleanup receives created output files until they are complete. If
	// non-nil, an interrupt handler removes them on SIGINT or SIGTERM.
	Cleanup *output.Registry
}

// Execute runs cmd with the process arguments and returns the exit code.
// Errors that were not already reported as diagnostics (flag errors,
// unexpected failures) are printed with the tool prefix.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", cmd.Name(), err)
	}
	return GetExitCode(err)
}

// guard runs fn and turns a panic into the generic unknown-failure
// diagnostic. Files created for output are removed.
func guard(tool string, opts *RootOptions, cmd *cobra.Command, fn func() error) (err error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		stderr := cmd.ErrOrStderr()
		newLogger(opts.Verbose, stderr).Debug("command panicked", "panic", fmt.Sprint(v))
		opts.Cleanup.RemoveAll()
		err = fail(diag.NewReporter(tool, stderr), diag.New(diag.UnknownFailure, "Unexpected unknown exception occurred."))
	}()
	return fn()
}

// newLogger builds the tool logger: debug output with --verbose, warnings
// only otherwise.
func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// fail reports err and returns the ExitError for it.
func fail(rep *diag.Reporter, err error) error {
	rep.Error(err)
	return WrapExitError(ExitFailure, "", err)
}

// reportLines reports a multi-line error one prefixed line at a time.
func reportLines(rep *diag.Reporter, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		rep.Printf("%s", line)
	}
}

// readInput reads path, or the command's standard input for "-". It returns
// the data and the name to use in diagnostics.
func readInput(cmd *cobra.Command, path string) ([]byte, string, error) {
	if path == "" || path == output.Stdout {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", diag.Wrap(diag.IOFailure, err, "error reading standard input")
		}
		return data, "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", diag.Wrap(diag.IOFailure, err, "error opening '%s'", path)
	}
	return data, path, nil
}

func (o *RootOptions) gate(cmd *cobra.Command) *output.Gate {
	return &output.Gate{
		Stdout:     cmd.OutOrStdout(),
		IsTerminal: o.IsTerminal,
		Cleanup:    o.Cleanup,
	}
}

func inputArg(args []string) string {
	if len(args) == 0 {
		return output.Stdout
	}
	return args[0]
}
