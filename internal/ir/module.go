package ir

// Module is the program representation passed through the pipeline.
// Transformation passes mutate it in place.
type Module struct {
	Name      string      `json:"module"`
	Globals   []*Global   `json:"globals,omitempty"`
	Functions []*Function `json:"functions,omitempty"`
}

// Global is a module-level integer variable.
type Global struct {
	Name     string `json:"name"`
	Init     int64  `json:"init,omitempty"`
	Const    bool   `json:"const,omitempty"`
	Exported bool   `json:"exported,omitempty"`
}

// Function is a named function. External functions are declarations and
// have no blocks.
type Function struct {
	Name     string   `json:"name"`
	Exported bool     `json:"exported,omitempty"`
	External bool     `json:"external,omitempty"`
	Params   []string `json:"params,omitempty"`
	Blocks   []*Block `json:"blocks,omitempty"`
}

// Block is a basic block: a label and a straight-line instruction list ending
// in a terminator.
type Block struct {
	Label  string   `json:"label"`
	Instrs []*Instr `json:"instrs"`
}

// Instr is a single instruction. Def names the local value it defines, if any.
type Instr struct {
	Def  string   `json:"def,omitempty"`
	Op   Opcode   `json:"op"`
	Args []string `json:"args,omitempty"`
}

// Function returns the function with the given name, or nil.
func (m *Module) Function(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// Global returns the global with the given name, or nil.
func (m *Module) Global(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Block returns the block with the given label, or nil.
func (fn *Function) Block(label string) *Block {
	for _, b := range fn.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// Terminator returns the last instruction of the block if it is a terminator.
func (b *Block) Terminator() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !last.Op.Info().Terminator {
		return nil
	}
	return last
}

// Successors returns the labels of the blocks this block may branch to,
// in operand order.
func (b *Block) Successors() []string {
	term := b.Terminator()
	if term == nil {
		return nil
	}
	var succs []string
	for _, arg := range term.Args {
		if op, err := ParseOperand(arg); err == nil && op.Kind == OperandLabel {
			succs = append(succs, op.Name)
		}
	}
	return succs
}

// InstrCount returns the number of instructions in the function.
func (fn *Function) InstrCount() int {
	n := 0
	for _, b := range fn.Blocks {
		n += len(b.Instrs)
	}
	return n
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	out := &Module{Name: m.Name}
	for _, g := range m.Globals {
		cp := *g
		out.Globals = append(out.Globals, &cp)
	}
	for _, fn := range m.Functions {
		cp := &Function{
			Name:     fn.Name,
			Exported: fn.Exported,
			External: fn.External,
			Params:   append([]string(nil), fn.Params...),
		}
		for _, b := range fn.Blocks {
			nb := &Block{Label: b.Label, Instrs: make([]*Instr, 0, len(b.Instrs))}
			for _, in := range b.Instrs {
				nb.Instrs = append(nb.Instrs, &Instr{
					Def:  in.Def,
					Op:   in.Op,
					Args: append([]string(nil), in.Args...),
				})
			}
			cp.Blocks = append(cp.Blocks, nb)
		}
		out.Functions = append(out.Functions, cp)
	}
	return out
}

// Value converts the module to its canonical value form. Empty optional
// fields are omitted the same way the json tags omit them, so a module
// decoded from the canonical bytes converts back to identical bytes.
func (m *Module) Value() IRObject {
	obj := IRObject{"module": IRString(m.Name)}

	if len(m.Globals) > 0 {
		globals := make(IRArray, len(m.Globals))
		for i, g := range m.Globals {
			gv := IRObject{"name": IRString(g.Name)}
			if g.Init != 0 {
				gv["init"] = IRInt(g.Init)
			}
			if g.Const {
				gv["const"] = IRBool(true)
			}
			if g.Exported {
				gv["exported"] = IRBool(true)
			}
			globals[i] = gv
		}
		obj["globals"] = globals
	}

	if len(m.Functions) > 0 {
		funcs := make(IRArray, len(m.Functions))
		for i, fn := range m.Functions {
			funcs[i] = fn.value()
		}
		obj["functions"] = funcs
	}

	return obj
}

func (fn *Function) value() IRObject {
	obj := IRObject{"name": IRString(fn.Name)}
	if fn.Exported {
		obj["exported"] = IRBool(true)
	}
	if fn.External {
		obj["external"] = IRBool(true)
	}
	if len(fn.Params) > 0 {
		obj["params"] = Strings(fn.Params)
	}
	if len(fn.Blocks) > 0 {
		blocks := make(IRArray, len(fn.Blocks))
		for i, b := range fn.Blocks {
			instrs := make(IRArray, len(b.Instrs))
			for j, in := range b.Instrs {
				iv := IRObject{"op": IRString(in.Op)}
				if in.Def != "" {
					iv["def"] = IRString(in.Def)
				}
				if len(in.Args) > 0 {
					iv["args"] = Strings(in.Args)
				}
				instrs[j] = iv
			}
			blocks[i] = IRObject{"label": IRString(b.Label), "instrs": instrs}
		}
		obj["blocks"] = blocks
	}
	return obj
}
