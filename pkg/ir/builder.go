package ir

// Builder-style helpers for assembling a Module. A real loader (out of
// scope for this package, per spec §6) would populate a Module this
// way from a serialized compiled program; tests use the same surface
// to construct fixtures.

func (m *Module) allocID() ValueID {
	id := m.nextID
	m.nextID++
	return id
}

// NewFunction appends a new function to the module and returns it.
func (m *Module) NewFunction(name string, ret Type) *Function {
	f := &Function{id: m.allocID(), Name: name, RetType: ret, Mod: m}
	m.Functions = append(m.Functions, f)
	return f
}

// NewGlobal appends a new global (pointer to Elem) to the module.
func (m *Module) NewGlobal(name string, elem Type, init Value, isConst bool) *Global {
	g := &Global{id: m.allocID(), Name: name, Typ: PointerType{Elem: elem}, Init: init, IsConstant: isConst}
	m.Globals = append(m.Globals, g)
	return g
}

// AddParam appends a parameter to f.
func (f *Function) AddParam(name string, typ Type) *Argument {
	a := &Argument{id: f.Mod.allocID(), Name: name, Typ: typ, Func: f}
	f.Params = append(f.Params, a)
	return a
}

// NewBlock appends a new basic block to f.
func (f *Function) NewBlock(name string) *BasicBlock {
	b := &BasicBlock{id: f.Mod.allocID(), Name: name, Func: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// AddSucc records succ as a control-flow successor of b (and b as a
// predecessor of succ).
func (b *BasicBlock) AddSucc(succ *BasicBlock) {
	b.Succs = append(b.Succs, succ)
	succ.Preds = append(succ.Preds, b)
}

// Emit appends a new instruction to b.
func (b *BasicBlock) Emit(name string, op Opcode, typ Type, operands ...Value) *Instruction {
	instr := &Instruction{id: b.Func.Mod.allocID(), Name: name, Op: op, Typ: typ, Blk: b, Operands: operands}
	b.Instrs = append(b.Instrs, instr)
	return instr
}
