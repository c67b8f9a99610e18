package ir

import (
	"fmt"
	"strconv"
)

// OperandKind classifies an instruction operand.
type OperandKind int

const (
	OperandValue  OperandKind = iota // %name: parameter or instruction result
	OperandSymbol                    // @name: global or function
	OperandLabel                     // ^name: block label
	OperandImm                       // integer immediate
)

func (k OperandKind) String() string {
	switch k {
	case OperandValue:
		return "value"
	case OperandSymbol:
		return "symbol"
	case OperandLabel:
		return "label"
	case OperandImm:
		return "immediate"
	}
	return fmt.Sprintf("OperandKind(%d)", int(k))
}

// Operand is a parsed instruction operand.
type Operand struct {
	Kind OperandKind
	Name string
	Imm  int64
}

// ParseOperand parses the textual operand form.
func ParseOperand(s string) (Operand, error) {
	if s == "" {
		return Operand{}, fmt.Errorf("empty operand")
	}

	var kind OperandKind
	switch s[0] {
	case '%':
		kind = OperandValue
	case '@':
		kind = OperandSymbol
	case '^':
		kind = OperandLabel
	default:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("invalid operand %q", s)
		}
		return Operand{Kind: OperandImm, Imm: n}, nil
	}

	if len(s) == 1 {
		return Operand{}, fmt.Errorf("operand %q has no name", s)
	}
	return Operand{Kind: kind, Name: s[1:]}, nil
}

// String returns the textual operand form.
func (o Operand) String() string {
	switch o.Kind {
	case OperandValue:
		return "%" + o.Name
	case OperandSymbol:
		return "@" + o.Name
	case OperandLabel:
		return "^" + o.Name
	}
	return strconv.FormatInt(o.Imm, 10)
}

// Value returns the operand for a local value.
func Value(name string) string { return "%" + name }

// Imm returns the operand for an integer immediate.
func Imm(n int64) string { return strconv.FormatInt(n, 10) }
