// Package ir defines the in-memory module representation shared by the
// assembler, the optimizer pipeline and the bytecode codec.
//
// This package contains type definitions and their canonical encoding only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key constraints:
//   - Operands are strings: %value, @symbol, ^label or a decimal integer
//   - Integers only, no floats anywhere in the canonical form
//   - The canonical form (MarshalCanonical) is the only input to hashing and
//     module equality
package ir
