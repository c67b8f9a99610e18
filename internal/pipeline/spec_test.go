package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modkit/internal/passes"
)

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec([]byte(`
name: cleanup
passes: [constprop, die, dce, constprop]
print_after_each: true
`))
	require.NoError(t, err)
	assert.Equal(t, "cleanup", spec.Name)
	assert.Equal(t, []string{"constprop", "die", "dce", "constprop"}, spec.Passes)
	assert.True(t, spec.PrintAfterEach)
	assert.False(t, spec.Analyze)
	assert.True(t, spec.Verify, "verify defaults to on")
}

func TestParseSpecVerifyOff(t *testing.T) {
	spec, err := ParseSpec([]byte("passes: [instcount]\nanalyze: true\nverify: false\n"))
	require.NoError(t, err)
	assert.True(t, spec.Analyze)
	assert.False(t, spec.Verify)
}

func TestParseSpecEmpty(t *testing.T) {
	spec, err := ParseSpec(nil)
	require.NoError(t, err)
	assert.Empty(t, spec.Passes)
	assert.True(t, spec.Verify)
}

func TestParseSpecRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "passes: [dce]\npass: [die]\n", "field pass not found"},
		{"empty name", "passes: [dce, \"\"]\n", "passes[1] is empty"},
		{"wrong type", "passes: dce\n", "failed to parse pipeline YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpec([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("passes: [globaldce]\n"), 0o644))

	spec, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"globaldce"}, spec.Passes)

	_, err = LoadSpec(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read pipeline file")
}

func TestCheckNames(t *testing.T) {
	r := passes.Default()
	assert.NoError(t, (&Spec{Passes: []string{"dce", "instcount"}}).CheckNames(r))

	err := (&Spec{Passes: []string{"dce", "gvn", "licm"}}).CheckNames(r)
	require.Error(t, err)
	assert.Equal(t, "unknown pass \"gvn\"\nunknown pass \"licm\"", err.Error())
}
