package ir

import "sort"

// Opcode names an instruction operation.
type Opcode string

// Arithmetic, logic and comparison opcodes take two value operands and
// define a result.
const (
	OpAdd Opcode = "add"
	OpSub Opcode = "sub"
	OpMul Opcode = "mul"
	OpDiv Opcode = "div"
	OpRem Opcode = "rem"
	OpAnd Opcode = "and"
	OpOr  Opcode = "or"
	OpXor Opcode = "xor"
	OpShl Opcode = "shl"
	OpShr Opcode = "shr"
	OpEq  Opcode = "eq"
	OpNe  Opcode = "ne"
	OpLt  Opcode = "lt"
	OpLe  Opcode = "le"
	OpGt  Opcode = "gt"
	OpGe  Opcode = "ge"
)

// Memory, call and control-flow opcodes.
const (
	OpCopy        Opcode = "copy"
	OpAlloca      Opcode = "alloca"
	OpLoad        Opcode = "load"
	OpStore       Opcode = "store"
	OpCall        Opcode = "call"
	OpPhi         Opcode = "phi"
	OpBr          Opcode = "br"
	OpCondBr      Opcode = "condbr"
	OpRet         Opcode = "ret"
	OpUnreachable Opcode = "unreachable"
)

// DefRule says whether an instruction defines a value.
type DefRule int

const (
	DefNever DefRule = iota
	DefAlways
	DefOptional
)

// OpInfo describes the static shape of an opcode.
type OpInfo struct {
	// MinArgs and MaxArgs bound the operand count. MaxArgs < 0 means unbounded.
	MinArgs, MaxArgs int

	Def DefRule

	// Terminator instructions end a block.
	Terminator bool

	// SideEffects marks instructions that may not be removed even when their
	// result is unused.
	SideEffects bool

	// Binary opcodes can be folded when both operands are immediates.
	Binary bool
}

var opTable = map[Opcode]OpInfo{
	OpAdd: binaryOp, OpSub: binaryOp, OpMul: binaryOp, OpDiv: binaryOp, OpRem: binaryOp,
	OpAnd: binaryOp, OpOr: binaryOp, OpXor: binaryOp, OpShl: binaryOp, OpShr: binaryOp,
	OpEq: binaryOp, OpNe: binaryOp, OpLt: binaryOp, OpLe: binaryOp, OpGt: binaryOp, OpGe: binaryOp,

	OpCopy:        {MinArgs: 1, MaxArgs: 1, Def: DefAlways},
	OpAlloca:      {MinArgs: 0, MaxArgs: 0, Def: DefAlways},
	OpLoad:        {MinArgs: 1, MaxArgs: 1, Def: DefAlways},
	OpStore:       {MinArgs: 2, MaxArgs: 2, Def: DefNever, SideEffects: true},
	OpCall:        {MinArgs: 1, MaxArgs: -1, Def: DefOptional, SideEffects: true},
	OpPhi:         {MinArgs: 2, MaxArgs: -1, Def: DefAlways},
	OpBr:          {MinArgs: 1, MaxArgs: 1, Def: DefNever, Terminator: true, SideEffects: true},
	OpCondBr:      {MinArgs: 3, MaxArgs: 3, Def: DefNever, Terminator: true, SideEffects: true},
	OpRet:         {MinArgs: 0, MaxArgs: 1, Def: DefNever, Terminator: true, SideEffects: true},
	OpUnreachable: {MinArgs: 0, MaxArgs: 0, Def: DefNever, Terminator: true, SideEffects: true},
}

var binaryOp = OpInfo{MinArgs: 2, MaxArgs: 2, Def: DefAlways, Binary: true}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	_, ok := opTable[op]
	return ok
}

// Info returns the static description of op. Unknown opcodes get a zero
// OpInfo with SideEffects set so passes leave them alone.
func (op Opcode) Info() OpInfo {
	if info, ok := opTable[op]; ok {
		return info
	}
	return OpInfo{MaxArgs: -1, SideEffects: true}
}

// Opcodes returns every known opcode sorted by name.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, len(opTable))
	for op := range opTable {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Fold evaluates a binary opcode over two immediates. ok is false for
// non-binary opcodes and for division or remainder by zero.
func Fold(op Opcode, a, b int64) (v int64, ok bool) {
	boolInt := func(c bool) int64 {
		if c {
			return 1
		}
		return 0
	}

	switch op {
	case OpAdd:
		return a + b, true
	case OpSub:
		return a - b, true
	case OpMul:
		return a * b, true
	case OpDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case OpRem:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case OpAnd:
		return a & b, true
	case OpOr:
		return a | b, true
	case OpXor:
		return a ^ b, true
	case OpShl:
		if b < 0 || b > 63 {
			return 0, false
		}
		return a << uint(b), true
	case OpShr:
		if b < 0 || b > 63 {
			return 0, false
		}
		return a >> uint(b), true
	case OpEq:
		return boolInt(a == b), true
	case OpNe:
		return boolInt(a != b), true
	case OpLt:
		return boolInt(a < b), true
	case OpLe:
		return boolInt(a <= b), true
	case OpGt:
		return boolInt(a > b), true
	case OpGe:
		return boolInt(a >= b), true
	}
	return 0, false
}
