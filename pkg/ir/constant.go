package ir

// Constant marks a Value whose bits are known at module-load time —
// the kinds the Constructors factory can build a precise (non-bottom)
// Domain for directly, without consulting a State.
type Constant interface {
	Value
	isConstant()
}

// constID is shared by every Constant: constants are never used as
// memory-block or pointer-target keys (only instructions, arguments,
// globals, and functions are), so they do not need a distinct handle
// from the module's ValueID arena.
const constID ValueID = 0

// ConstInt is an integer constant of a fixed width.
type ConstInt struct {
	Typ IntType
	Val uint64 // low Width bits significant
}

func (c ConstInt) ID() ValueID    { return constID }
func (c ConstInt) Type() Type     { return c.Typ }
func (c ConstInt) String() string { return "int-const" }
func (ConstInt) isConstant()      {}

// ConstFloat is a floating-point constant.
type ConstFloat struct {
	Typ   FloatType
	Bits  uint64 // IEEE bit pattern, width per Typ.Format
	NaN   bool
	Inf   bool
	Neg   bool
}

func (c ConstFloat) ID() ValueID    { return constID }
func (c ConstFloat) Type() Type     { return c.Typ }
func (c ConstFloat) String() string { return "float-const" }
func (ConstFloat) isConstant()      {}

// ConstNull is the null pointer of PointerType Typ.
type ConstNull struct {
	Typ PointerType
}

func (c ConstNull) ID() ValueID    { return constID }
func (c ConstNull) Type() Type     { return c.Typ }
func (c ConstNull) String() string { return "null" }
func (ConstNull) isConstant()      {}

// ConstUndef is an unconstrained value of the given type — the
// Constructors factory maps it to bottom, not top: an undef value
// has not yet been observed to hold anything, which is the empty
// concretization, the dual of "could be anything".
type ConstUndef struct {
	Typ Type
}

func (c ConstUndef) ID() ValueID    { return constID }
func (c ConstUndef) Type() Type     { return c.Typ }
func (c ConstUndef) String() string { return "undef" }
func (ConstUndef) isConstant()      {}

// ConstAggregate is a constant array, vector, or struct built from
// element constants.
type ConstAggregate struct {
	Typ   Type // ArrayType or StructType
	Elems []Constant
}

func (c ConstAggregate) ID() ValueID    { return constID }
func (c ConstAggregate) Type() Type     { return c.Typ }
func (c ConstAggregate) String() string { return "aggregate-const" }
func (ConstAggregate) isConstant()      {}

// ConstDataSequential is a packed run of scalar constants of the same
// element type (e.g. a string literal) — distinguished from
// ConstAggregate only so the string-trie constructor can special-case
// it without walking a generic element list first.
type ConstDataSequential struct {
	Typ   ArrayType
	Bytes []byte // meaningful when Typ.Elem is an 8-bit IntType
}

func (c ConstDataSequential) ID() ValueID    { return constID }
func (c ConstDataSequential) Type() Type     { return c.Typ }
func (c ConstDataSequential) String() string { return "data-const" }
func (ConstDataSequential) isConstant()      {}

// ConstExprOp is the opcode of a constant expression; only the two
// documented kinds are supported.
type ConstExprOp int

const (
	ConstExprGEP ConstExprOp = iota
	ConstExprBitCast
)

// ConstExpr is a constant-folded GEP or BitCast applied to another
// Value (itself possibly an instruction result, when resolving
// against the current State, or another constant). Building its
// Domain requires the current State, per §4.1.
type ConstExpr struct {
	Typ     Type
	Op      ConstExprOp
	Base    Value
	Indices []Value // GEP only
}

func (c ConstExpr) ID() ValueID    { return constID }
func (c ConstExpr) Type() Type     { return c.Typ }
func (c ConstExpr) String() string { return "constexpr" }
func (ConstExpr) isConstant()      {}
