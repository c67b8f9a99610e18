// Package bytecode is the binary module container.
//
// Layout:
//
//	magic   "MODB"
//	version 1 byte (ir.FormatVersion)
//	flags   1 byte, bit 0 set when the payload is gzip-compressed
//	payload canonical JSON of the module
package bytecode

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/modkit/internal/ir"
)

// Magic opens every binary module.
const Magic = "MODB"

const flagGzip = 1 << 0

const headerSize = len(Magic) + 2

// ErrNotBytecode is returned by Read when the stream does not start with Magic.
var ErrNotBytecode = errors.New("not a binary module (bad magic)")

// Options controls Write.
type Options struct {
	// Compress gzips the payload.
	Compress bool
}

// Write encodes m to w.
func Write(w io.Writer, m *ir.Module, opts Options) error {
	payload, err := ir.Canonical(m)
	if err != nil {
		return fmt.Errorf("encode module: %w", err)
	}

	var flags byte
	if opts.Compress {
		flags |= flagGzip
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(Magic)
	bw.WriteByte(byte(ir.FormatVersion))
	bw.WriteByte(flags)

	if opts.Compress {
		zw, err := gzip.NewWriterLevel(bw, gzip.BestCompression)
		if err != nil {
			return err
		}
		if _, err := zw.Write(payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	} else if _, err := bw.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write module: %w", err)
	}
	return nil
}

// Encode returns the binary form of m.
func Encode(m *ir.Module, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, m, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read decodes a binary module from r. Compressed and uncompressed payloads
// are both accepted.
func Read(r io.Reader) (*ir.Module, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNotBytecode
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(header[:len(Magic)]) != Magic {
		return nil, ErrNotBytecode
	}

	version := int(header[len(Magic)])
	if version != ir.FormatVersion {
		return nil, fmt.Errorf("unsupported binary module version %d (want %d)", version, ir.FormatVersion)
	}

	flags := header[len(Magic)+1]
	if flags&^flagGzip != 0 {
		return nil, fmt.Errorf("unknown binary module flags %#02x", flags)
	}

	payload := r
	if flags&flagGzip != 0 {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("read compressed payload: %w", err)
		}
		defer zr.Close()
		payload = zr
	}

	dec := json.NewDecoder(payload)
	dec.DisallowUnknownFields()
	var m ir.Module
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}
	if err := checkNulls(&m); err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}
	return &m, nil
}

// checkNulls rejects null entries, which JSON decodes into nil pointers.
func checkNulls(m *ir.Module) error {
	for i, g := range m.Globals {
		if g == nil {
			return fmt.Errorf("globals[%d] is null", i)
		}
	}
	for i, fn := range m.Functions {
		if fn == nil {
			return fmt.Errorf("functions[%d] is null", i)
		}
		for j, b := range fn.Blocks {
			if b == nil {
				return fmt.Errorf("functions[%d].blocks[%d] is null", i, j)
			}
			for k, in := range b.Instrs {
				if in == nil {
					return fmt.Errorf("functions[%d].blocks[%d].instrs[%d] is null", i, j, k)
				}
			}
		}
	}
	return nil
}

// IsBytecode reports whether data starts with the binary module magic.
func IsBytecode(data []byte) bool {
	return bytes.HasPrefix(data, []byte(Magic))
}
