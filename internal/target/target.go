// Package target describes the machine that target-dependent passes compile
// for. A description is loaded at most once per run through Lazy and shared
// read-only by every pass that needs it.
package target

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/pelletier/go-toml"
)

// Machine is a target machine description.
type Machine struct {
	Name        string `toml:"name"`
	PointerSize int    `toml:"pointer-size"`
	Endian      string `toml:"endian"`
	StackAlign  int    `toml:"stack-align"`
}

// tomlFile is the target description file as it is encoded in TOML.
type tomlFile struct {
	Target *Machine `toml:"target"`
}

// Host returns a description of the machine the tool runs on.
func Host() *Machine {
	return &Machine{
		Name:        runtime.GOARCH,
		PointerSize: strconv.IntSize / 8,
		Endian:      "little",
		StackAlign:  16,
	}
}

// Parse decodes a TOML target description.
func Parse(data []byte) (*Machine, error) {
	var f tomlFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse target description: %w", err)
	}
	if f.Target == nil {
		return nil, fmt.Errorf("parse target description: missing [target] table")
	}
	if err := f.Target.validate(); err != nil {
		return nil, err
	}
	return f.Target, nil
}

// LoadFile reads a TOML target description from path.
func LoadFile(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read target description: %w", err)
	}
	return Parse(data)
}

func (m *Machine) validate() error {
	if m.Name == "" {
		return fmt.Errorf("target description: name is required")
	}
	switch m.PointerSize {
	case 2, 4, 8:
	default:
		return fmt.Errorf("target %s: unsupported pointer-size %d", m.Name, m.PointerSize)
	}
	switch m.Endian {
	case "":
		m.Endian = "little"
	case "little", "big":
	default:
		return fmt.Errorf("target %s: endian must be little or big, got %q", m.Name, m.Endian)
	}
	if m.StackAlign == 0 {
		m.StackAlign = m.PointerSize
	}
	return nil
}

// Lazy allocates a Machine on first use and returns the same instance on
// every later call. It is not safe for concurrent use; pipelines are built
// on a single goroutine.
type Lazy struct {
	load func() (*Machine, error)

	machine *Machine
	err     error
	done    bool
}

// NewLazy creates a Lazy that calls load on first use.
func NewLazy(load func() (*Machine, error)) *Lazy {
	return &Lazy{load: load}
}

// FromFile returns a Lazy that loads path on first use, or the host
// description when path is empty.
func FromFile(path string) *Lazy {
	if path == "" {
		return NewLazy(func() (*Machine, error) { return Host(), nil })
	}
	return NewLazy(func() (*Machine, error) { return LoadFile(path) })
}

// Get returns the machine, loading it on the first call. A load error is
// remembered and returned on every call.
func (l *Lazy) Get() (*Machine, error) {
	if l == nil {
		return nil, fmt.Errorf("no target machine available")
	}
	if !l.done {
		l.machine, l.err = l.load()
		l.done = true
	}
	return l.machine, l.err
}

// Loaded reports whether the machine has been requested.
func (l *Lazy) Loaded() bool {
	return l != nil && l.done
}
