package bytecode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modkit/internal/ir"
)

func sample() *ir.Module {
	return &ir.Module{
		Name:    "sample",
		Globals: []*ir.Global{{Name: "n", Init: -4, Exported: true}},
		Functions: []*ir.Function{{
			Name:   "f",
			Params: []string{"a", "b"},
			Blocks: []*ir.Block{{Label: "entry", Instrs: []*ir.Instr{
				{Def: "s", Op: ir.OpAdd, Args: []string{"%a", "%b"}},
				{Op: ir.OpStore, Args: []string{"%s", "@n"}},
				{Op: ir.OpRet, Args: []string{"%s"}},
			}}},
		}},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "gzip"
		}
		t.Run(name, func(t *testing.T) {
			m := sample()
			data, err := Encode(m, Options{Compress: compress})
			require.NoError(t, err)
			assert.True(t, IsBytecode(data))
			assert.Equal(t, byte(ir.FormatVersion), data[4])

			got, err := Read(bytes.NewReader(data))
			require.NoError(t, err)
			assert.True(t, ir.Equal(m, got))
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a, err := Encode(sample(), Options{})
	require.NoError(t, err)
	b, err := Encode(sample(), Options{})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	canonical, err := ir.Canonical(sample())
	require.NoError(t, err)
	assert.Equal(t, canonical, a[headerSize:])
}

func TestCompressionFlag(t *testing.T) {
	plain, err := Encode(sample(), Options{})
	require.NoError(t, err)
	packed, err := Encode(sample(), Options{Compress: true})
	require.NoError(t, err)

	assert.Equal(t, byte(0), plain[5])
	assert.Equal(t, byte(flagGzip), packed[5])
	assert.NotEqual(t, plain, packed)
}

func TestReadRejects(t *testing.T) {
	valid, err := Encode(sample(), Options{})
	require.NoError(t, err)

	badVersion := append([]byte(nil), valid...)
	badVersion[4] = 99
	badFlags := append([]byte(nil), valid...)
	badFlags[5] = 0x80

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, "bad magic"},
		{"text", []byte(`module: "x"`), "bad magic"},
		{"version", badVersion, "unsupported binary module version 99"},
		{"flags", badFlags, "unknown binary module flags"},
		{"truncated", valid[:len(valid)-3], "decode module"},
		{"gzip flag on plain payload", append([]byte("MODB\x01\x01"), valid[headerSize:]...), "compressed payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadUnknownField(t *testing.T) {
	data := "MODB\x01\x00" + `{"module":"x","extra":1}`
	_, err := Read(strings.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestReadRejectsNullEntries(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"global", `{"module":"m","globals":[null]}`, "decode module: globals[0] is null"},
		{"function", `{"module":"m","functions":[null]}`, "decode module: functions[0] is null"},
		{"block", `{"module":"m","functions":[{"name":"f","blocks":[null]}]}`, "decode module: functions[0].blocks[0] is null"},
		{"instr", `{"module":"m","functions":[{"name":"f","blocks":[{"label":"b","instrs":[{"op":"ret"},null]}]}]}`,
			"decode module: functions[0].blocks[0].instrs[1] is null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Read(strings.NewReader("MODB\x01\x00" + tt.payload))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}
