package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modkit/internal/bytecode"
	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/journal"
	"github.com/roach88/modkit/internal/pass"
	"github.com/roach88/modkit/internal/passes"
	"github.com/roach88/modkit/internal/testutil"
)

// corruptPass rewrites main's last return to use an undefined value.
type corruptPass struct{}

func (corruptPass) Name() string                  { return "corrupt" }
func (corruptPass) Granularity() pass.Granularity { return pass.Module }
func (corruptPass) Usage() pass.Usage             { return pass.Usage{} }

func (corruptPass) Run(_ context.Context, _ pass.Analyses, u pass.Unit) (bool, error) {
	u.Module.Function("main").Block("big").Instrs[0].Args = []string{"%nope"}
	return true, nil
}

func testRegistry() *pass.Registry {
	r := passes.Default()
	r.MustRegister(
		&pass.Descriptor{Name: "broken", Description: "Broken pass", Granularity: pass.Module},
		&pass.Descriptor{Name: "corrupt", Description: "Corrupting pass", Granularity: pass.Module,
			New: func() pass.Pass { return corruptPass{} }},
		&pass.Descriptor{Name: "boom", Description: "Panicking constructor", Granularity: pass.Module,
			New: func() pass.Pass { panic("constructor failed") }},
	)
	return r
}

func newOptimize(root *RootOptions, setup func(*OptimizeOptions)) *cobra.Command {
	if root == nil {
		root = &RootOptions{}
	}
	opts := &OptimizeOptions{RootOptions: root, Registry: testRegistry()}
	if setup != nil {
		setup(opts)
	}
	return newOptimizeCommand(opts)
}

func TestOptimizeRoundTripIdentity(t *testing.T) {
	in := demoBytecode(t)

	res := execute(newOptimize(nil, nil), in)
	require.NoError(t, res.err, res.stderr.String())
	assert.Empty(t, res.stderr.String())
	assert.Equal(t, in, res.stdout.Bytes())

	plain := execute(newOptimize(nil, nil), in, "--disable-compression")
	require.NoError(t, plain.err)
	want, err := bytecode.Encode(testutil.DemoModule(), bytecode.Options{})
	require.NoError(t, err)
	assert.Equal(t, want, plain.stdout.Bytes())
}

func TestOptimizeRunsPassesInOrder(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "fold.bc", mustEncode(t, testutil.FoldableModule()))
	out := filepath.Join(dir, "out.bc")

	res := execute(newOptimize(nil, nil), nil, "-P", "constprop", "-P", "die", "-o", out, in)
	require.NoError(t, res.err, res.stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	m := readModule(t, data)
	main := m.Function("main")
	require.NotNil(t, main)
	require.Len(t, main.Blocks[0].Instrs, 1)
	assert.Equal(t, ir.OpRet, main.Blocks[0].Instrs[0].Op)
	assert.Equal(t, []string{"20"}, main.Blocks[0].Instrs[0].Args)
}

func TestOptimizeTerminalDegradesToNoOutput(t *testing.T) {
	root := &RootOptions{IsTerminal: terminal}

	res := execute(newOptimize(root, nil), demoBytecode(t))
	require.NoError(t, res.err)
	assert.Equal(t, ExitSuccess, res.code())
	assert.Empty(t, res.stdout.Bytes())
	assert.True(t, strings.HasPrefix(res.stderr.String(), "modopt: you're attempting to print out a binary module."))

	quiet := execute(newOptimize(root, nil), demoBytecode(t), "-q")
	require.NoError(t, quiet.err)
	assert.Empty(t, quiet.stdout.Bytes())
	assert.Empty(t, quiet.stderr.String())

	forced := execute(newOptimize(root, nil), demoBytecode(t), "-f")
	require.NoError(t, forced.err)
	assert.NotEmpty(t, forced.stdout.Bytes())
}

func TestOptimizeConflictLeavesFileUnchanged(t *testing.T) {
	dir := t.TempDir()
	existing := writeFile(t, dir, "out.bc", []byte("old contents"))

	res := execute(newOptimize(nil, nil), demoBytecode(t), "-o", existing, "-P", "dce")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.code())
	assert.Contains(t, res.stderr.String(), "modopt: error opening '"+existing+"': file exists!")

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "old contents", string(data))
}

func TestOptimizeAnalyzeOnly(t *testing.T) {
	res := execute(newOptimize(nil, nil), demoBytecode(t), "--analyze", "-P", "instcount", "-P", "constprop", "-P", "blockinfo")
	require.NoError(t, res.err, res.stderr.String())

	stdout := res.stdout.String()
	assert.True(t, strings.HasPrefix(stdout, "Printing analysis 'Counts the various types of Instructions':\n"), stdout)
	assert.Contains(t, stdout, "Printing analysis 'Basic Block Information' for block 'entry' in function 'main':")
	assert.NotContains(t, stdout, bytecode.Magic)
	assert.Equal(t, "modopt: warning: skipping transform pass 'constprop' in analysis-only mode\n", res.stderr.String())

	quiet := execute(newOptimize(nil, nil), demoBytecode(t), "--analyze", "-q", "-P", "instcount", "-P", "constprop")
	require.NoError(t, quiet.err)
	assert.Empty(t, quiet.stdout.String())
	assert.Empty(t, quiet.stderr.String())
}

func TestOptimizeUnconstructiblePassIsSkipped(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.bc")

	res := execute(newOptimize(nil, nil), demoBytecode(t), "-P", "dce", "-P", "broken", "-P", "strip", "-o", out)
	require.NoError(t, res.err)
	assert.Equal(t, "modopt: cannot create pass: Broken pass\n", res.stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	m := readModule(t, data)
	assert.Equal(t, "v0", m.Function("main").Params[0])
}

func TestOptimizeTargetFailureIsPerPass(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.toml")

	res := execute(newOptimize(nil, nil), demoBytecode(t), "--analyze", "--target", missing, "-P", "targetdata", "-P", "instcount")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stderr.String(), "modopt: cannot create pass: Target Data Layout"), res.stderr.String())
	assert.Contains(t, res.stdout.String(), "Printing analysis 'Counts the various types of Instructions':")
}

func TestOptimizeTargetFile(t *testing.T) {
	dir := t.TempDir()
	toml := writeFile(t, dir, "toy.toml", []byte("[target]\nname = \"toy16\"\npointer-size = 2\nstack-align = 2\n"))

	res := execute(newOptimize(nil, nil), demoBytecode(t), "--analyze", "--target", toml, "-P", "targetdata")
	require.NoError(t, res.err, res.stderr.String())
	assert.Contains(t, res.stdout.String(), "toy16")
}

func TestOptimizeUnknownPass(t *testing.T) {
	res := execute(newOptimize(nil, nil), demoBytecode(t), "-P", "nope", "-P", "dce", "-P", "gone")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.code())
	assert.Equal(t, "modopt: unknown pass \"nope\"\nmodopt: unknown pass \"gone\"\n", res.stderr.String())
	assert.Empty(t, res.stdout.Bytes())
}

func TestOptimizeBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not a module", "not a module", "modopt: -: bytecode didn't read correctly: not a binary module (bad magic)\n"},
		{"null function", "MODB\x01\x00" + `{"module":"m","functions":[null]}`,
			"modopt: -: bytecode didn't read correctly: decode module: functions[0] is null\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(newOptimize(nil, nil), []byte(tt.input))
			require.Error(t, res.err)
			assert.Equal(t, ExitFailure, res.code())
			assert.Equal(t, tt.want, res.stderr.String())
			assert.Empty(t, res.stdout.Bytes())
		})
	}
}

func TestOptimizePanicIsReported(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.bc")

	res := execute(newOptimize(nil, nil), demoBytecode(t), "-P", "dce", "-P", "boom", "-o", out)
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.code())
	assert.Equal(t, "modopt: Unexpected unknown exception occurred.\n", res.stderr.String())

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteReportsPanic(t *testing.T) {
	cmd := newOptimize(nil, nil)
	stderr := &bytes.Buffer{}
	cmd.SetIn(bytes.NewReader(demoBytecode(t)))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"-P", "boom"})

	assert.Equal(t, ExitFailure, Execute(context.Background(), cmd))
	assert.Equal(t, "modopt: Unexpected unknown exception occurred.\n", stderr.String())
}

func TestModuleHashForJournal(t *testing.T) {
	var logs bytes.Buffer
	logger := newLogger(false, &logs)

	assert.Equal(t, ir.MustModuleHash(testutil.DemoModule()), moduleHash(testutil.DemoModule(), logger, "input"))
	assert.Empty(t, logs.String())
}

func TestOptimizeVerifierCatchesCorruption(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.bc")

	res := execute(newOptimize(nil, nil), demoBytecode(t), "-P", "corrupt", "-o", out)
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.code())
	assert.True(t, strings.HasPrefix(res.stderr.String(), "modopt: verify: "), res.stderr.String())
	assert.Contains(t, res.stderr.String(), "[E206]")

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))

	off := execute(newOptimize(nil, nil), demoBytecode(t), "-P", "corrupt", "--disable-verify", "-o", out)
	require.NoError(t, off.err)
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestOptimizePrintAfterEach(t *testing.T) {
	res := execute(newOptimize(nil, nil), demoBytecode(t), "-p", "-P", "strip", "--disable-output")
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout.Bytes())

	stderr := res.stderr.String()
	require.True(t, strings.HasPrefix(stderr, "// module after strip\n"), stderr)
	assert.Contains(t, stderr, `"bb0"`)
	assert.Contains(t, stderr, `"v0"`)
}

func TestOptimizeDisableOutput(t *testing.T) {
	res := execute(newOptimize(&RootOptions{IsTerminal: terminal}, nil), demoBytecode(t), "--disable-output", "-P", "dce")
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout.Bytes())
	assert.Empty(t, res.stderr.String())
}

func TestOptimizePipelineFile(t *testing.T) {
	dir := t.TempDir()
	spec := writeFile(t, dir, "opt.yaml", []byte("name: cleanup\npasses: [constprop]\n"))
	in := writeFile(t, dir, "fold.bc", mustEncode(t, testutil.FoldableModule()))
	out := filepath.Join(dir, "out.bc")
	db := filepath.Join(dir, "runs.db")

	res := execute(newOptimize(nil, func(o *OptimizeOptions) {
		o.JournalOptions = []journal.Option{journal.WithIDGenerator(testutil.NewFixedIDs().Next)}
	}), nil, "--pipeline", spec, "-P", "die", "--journal", db, "-o", out, in)
	require.NoError(t, res.err, res.stderr.String())

	j, err := journal.Open(db)
	require.NoError(t, err)
	defer j.Close()
	run, err := j.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "cleanup", run.Pipeline)
	assert.Equal(t, []string{"constprop", "die"}, run.Passes)
}

func TestOptimizeBadPipelineFile(t *testing.T) {
	dir := t.TempDir()
	spec := writeFile(t, dir, "opt.yaml", []byte("passes: [constprop]\nunknown: true\n"))

	res := execute(newOptimize(nil, nil), demoBytecode(t), "--pipeline", spec)
	require.Error(t, res.err)
	assert.True(t, strings.HasPrefix(res.stderr.String(), "modopt: error loading pipeline '"+spec+"'"), res.stderr.String())
}

func TestOptimizeJournal(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "demo.bc", demoBytecode(t))
	out := filepath.Join(dir, "out.bc")
	db := filepath.Join(dir, "runs.db")
	ids := testutil.NewFixedIDs("first", "second")
	setup := func(o *OptimizeOptions) {
		o.JournalOptions = []journal.Option{journal.WithIDGenerator(ids.Next)}
	}

	ok := execute(newOptimize(nil, setup), nil, "-P", "dce", "-P", "instcount", "--journal", db, "-o", out, in)
	require.NoError(t, ok.err, ok.stderr.String())
	failed := execute(newOptimize(nil, setup), nil, "-P", "corrupt", "--journal", db, "--disable-output", in)
	require.Error(t, failed.err)

	j, err := journal.Open(db)
	require.NoError(t, err)
	defer j.Close()
	ctx := context.Background()

	first, err := j.Get(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, OptimizeName, first.Tool)
	assert.Equal(t, in, first.Input)
	assert.Equal(t, out, first.Output)
	assert.Equal(t, journal.StatusOK, first.Status)
	assert.Equal(t, ir.MustModuleHash(testutil.DemoModule()), first.InputHash)
	assert.NotEmpty(t, first.OutputHash)
	assert.Equal(t, ir.ToolVersion, first.ToolVersion)

	var names []string
	for _, s := range first.Stages {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"dce", "instcount", "verify"}, names)
	assert.Equal(t, "function", first.Stages[0].Granularity)

	second, err := j.Get(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, journal.StatusFailed, second.Status)
	assert.Contains(t, second.Error, "E206")
	assert.Empty(t, second.Output)

	history, err := j.History(ctx, first.InputHash)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestOptimizeListPasses(t *testing.T) {
	res := execute(NewOptimizeCommand(nil), nil, "--list-passes")
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimRight(res.stdout.String(), "\n"), "\n")
	assert.Equal(t, "Optimizations available:", lines[0])
	assert.Len(t, lines, 1+len(passes.Descriptors()))
	assert.Contains(t, res.stdout.String(), "Simple constant propagation")
	assert.Regexp(t, `(?m)^  targetdata\s+analysis\s+module\s+Target Data Layout$`, res.stdout.String())
}

func mustEncode(t *testing.T, m *ir.Module) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bytecode.Write(&buf, m, bytecode.Options{}))
	return buf.Bytes()
}
