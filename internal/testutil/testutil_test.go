package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDs(t *testing.T) {
	gen := NewFixedIDs("a", "b")
	assert.Equal(t, "a", gen.Next())
	assert.Equal(t, "b", gen.Next())
	assert.Panics(t, func() { gen.Next() })
}

func TestFixedIDsDefault(t *testing.T) {
	gen := NewFixedIDs()
	assert.Equal(t, "run-1", gen.Next())
	assert.Equal(t, "run-2", gen.Next())
}

func TestModulesAreFresh(t *testing.T) {
	a, b := DemoModule(), DemoModule()
	a.Functions[1].Blocks[0].Label = "changed"
	assert.Equal(t, "entry", b.Functions[1].Blocks[0].Label)
}
