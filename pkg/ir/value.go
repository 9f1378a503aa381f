package ir

// ValueID is a stable handle assigned to every instruction, argument,
// global, and function at module-load time — an arena index, not a
// pointer. Per REDESIGN FLAGS, pointer domains and memory blocks key
// their maps on ValueID so states stay comparable and serializable.
type ValueID uint32

// Value is anything the interpreter can look up an abstract value
// for: an instruction result, a function argument, a global, or a
// function used as a first-class pointer target.
type Value interface {
	ID() ValueID
	Type() Type
	String() string
}

// PhiIncoming pairs one predecessor block with the value a Phi takes
// from it.
type PhiIncoming struct {
	Block *BasicBlock
	Value Value
}

// Instruction is one IR operation. The operand slice holds the
// "primary" operands in opcode-specific order (documented per
// opcode below); Indices, Incoming, and Callee hold the operands
// specific to GEP/ExtractValue/InsertValue, Phi, and Call
// respectively so pkg/interp does not have to overload Operands.
type Instruction struct {
	id   ValueID
	Name string
	Op   Opcode
	Typ  Type
	Blk  *BasicBlock

	// Operands holds:
	//   arithmetic/bitwise/icmp/fcmp: [lhs, rhs]
	//   casts: [operand]
	//   load: [pointer]
	//   store: [value, pointer]
	//   alloca: [] (Typ is the allocated type, wrapped in PointerType)
	//   getelementptr: [base]
	//   extractvalue/insertvalue: [aggregate] ([aggregate, insertedValue] for insert)
	//   select: [cond, trueVal, falseVal]
	//   call: [args...] (Callee/CalleeName hold who is being called)
	//   br: []  condbr: [cond]  ret: [value] or []
	Operands []Value

	Pred Predicate // icmp / fcmp

	Indices []Value // getelementptr offsets (unsigned 64-bit Values); extractvalue/insertvalue constant index path

	Incoming []PhiIncoming // phi

	Callee     *Function // call to a known function; nil for external/indirect
	CalleeName string     // best-effort name when Callee is unknown

	Succs []*BasicBlock // br/condbr/switch targets, in predicate order (condbr: [then, else])
}

func (i *Instruction) ID() ValueID   { return i.id }
func (i *Instruction) Type() Type    { return i.Typ }
func (i *Instruction) String() string {
	if i.Name != "" {
		return "%" + i.Name
	}
	return i.Op.String()
}

// Argument is a function parameter.
type Argument struct {
	id   ValueID
	Name string
	Typ  Type
	Func *Function
}

func (a *Argument) ID() ValueID    { return a.id }
func (a *Argument) Type() Type     { return a.Typ }
func (a *Argument) String() string { return "%" + a.Name }

// Global is a module-level allocation with an optional constant
// initializer.
type Global struct {
	id         ValueID
	Name       string
	Typ        Type // pointer-to-element type
	Init       Value
	IsConstant bool
}

func (g *Global) ID() ValueID    { return g.id }
func (g *Global) Type() Type     { return g.Typ }
func (g *Global) String() string { return "@" + g.Name }
