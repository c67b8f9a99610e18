package asm

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modkit/internal/diag"
	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/testutil"
)

const demo = `
module: "demo"
globals: [{name: "limit", init: 10, const: true}]
functions: [{
	name: "puts"
	external: true
	params: ["s"]
}, {
	name: "main"
	exported: true
	params: ["a"]
	blocks: [{label: "entry", instrs: [
		{def: "x", op: "add", args: ["%a", "1"]},
		{op: "call", args: ["@puts", "%x"]},
		{op: "ret", args: ["%x"]},
	]}]
}]
`

func TestParseDemo(t *testing.T) {
	m, err := Parse("demo.ll", []byte(demo))
	require.NoError(t, err)

	assert.Equal(t, "demo", m.Name)
	require.Len(t, m.Globals, 1)
	assert.Equal(t, int64(10), m.Globals[0].Init)
	assert.True(t, m.Globals[0].Const)

	require.Len(t, m.Functions, 2)
	assert.True(t, m.Functions[0].External)
	main := m.Function("main")
	require.NotNil(t, main)
	assert.True(t, main.Exported)
	assert.Equal(t, []string{"a"}, main.Params)
	require.Len(t, main.Blocks, 1)
	assert.Equal(t, &ir.Instr{Def: "x", Op: ir.OpAdd, Args: []string{"%a", "1"}}, main.Blocks[0].Instrs[0])
	assert.Equal(t, ir.OpRet, main.Blocks[0].Terminator().Op)
}

func TestFormatRoundTrip(t *testing.T) {
	m, err := Parse("demo.ll", []byte(demo))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Format(&buf, m))
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Contains(t, buf.String(), `module: "demo"`)

	again, err := Parse("dump.ll", buf.Bytes())
	require.NoError(t, err, buf.String())
	assert.True(t, ir.Equal(m, again))
}

func TestParseAcceptsEveryOpcode(t *testing.T) {
	var instrs []string
	for _, op := range ir.Opcodes() {
		instrs = append(instrs, fmt.Sprintf("{op: %q}", op))
	}
	src := fmt.Sprintf(`module: "ops"
functions: [{name: "f", blocks: [{label: "b", instrs: [%s]}]}]
`, strings.Join(instrs, ", "))

	m, err := Parse("ops.ll", []byte(src))
	require.NoError(t, err)
	assert.Len(t, m.Functions[0].Blocks[0].Instrs, len(ir.Opcodes()))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `module: "x" functions: [`},
		{"missing module name", `functions: []`},
		{"empty module name", `module: ""`},
		{"unknown field", `module: "x", flavour: "vanilla"`},
		{"unknown opcode", `module: "x"
functions: [{name: "f", blocks: [{label: "b", instrs: [{op: "jump"}]}]}]`},
		{"bad identifier", `module: "x"
globals: [{name: "1st"}]`},
		{"non-concrete", `module: string`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse("bad.ll", []byte(tt.src))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, diag.Is(err, diag.ParseFailure), "got %v", err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.NotEmpty(t, pe.Message)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("bad.ll", []byte("module: \"x\"\nglobals: [{name: \"g\", init: \"ten\"}]\n"))
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.True(t, pe.Pos.IsValid())
	assert.Equal(t, "bad.ll", pe.Pos.Filename())
	assert.Equal(t, 2, pe.Pos.Line())
	assert.True(t, strings.HasPrefix(err.Error(), "bad.ll:2:"), err.Error())
}

func TestParseStdinName(t *testing.T) {
	_, err := Parse("-", []byte(`module: 1`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), StdinName)
}

func TestParseSharedFixture(t *testing.T) {
	m, err := Parse("demo.ll", []byte(testutil.DemoSource))
	require.NoError(t, err)
	assert.True(t, ir.Equal(testutil.DemoModule(), m))
}
