package ir

// Opcode identifies the operation an Instruction performs. It is a
// compact uint16 enum, the same shape as a typed machine-instruction
// opcode: dispatch is a switch over Opcode, never a type assertion.
type Opcode uint16

const (
	OpInvalid Opcode = iota

	// === Arithmetic ===
	OpAdd
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv

	// === Bitwise ===
	OpShl
	OpLShr
	OpAShr
	OpAnd
	OpOr
	OpXor

	// === Comparison ===
	OpICmp
	OpFCmp

	// === Casts ===
	OpTrunc
	OpZExt
	OpSExt
	OpFPToUI
	OpFPToSI
	OpUIToFP
	OpSIToFP
	OpBitCast

	// === Memory ===
	OpAlloca
	OpLoad
	OpStore
	OpGetElementPtr

	// === Aggregates ===
	OpExtractValue
	OpInsertValue

	// === Control flow ===
	OpPhi
	OpSelect
	OpCall
	OpRet
	OpBr
	OpCondBr
	OpSwitch
	OpUnreachable

	OpcodeCount
)

var opcodeNames = [...]string{
	OpInvalid:       "invalid",
	OpAdd:           "add",
	OpSub:           "sub",
	OpMul:           "mul",
	OpUDiv:          "udiv",
	OpSDiv:          "sdiv",
	OpURem:          "urem",
	OpSRem:          "srem",
	OpFAdd:          "fadd",
	OpFSub:          "fsub",
	OpFMul:          "fmul",
	OpFDiv:          "fdiv",
	OpShl:           "shl",
	OpLShr:          "lshr",
	OpAShr:          "ashr",
	OpAnd:           "and",
	OpOr:            "or",
	OpXor:           "xor",
	OpICmp:          "icmp",
	OpFCmp:          "fcmp",
	OpTrunc:         "trunc",
	OpZExt:          "zext",
	OpSExt:          "sext",
	OpFPToUI:        "fptoui",
	OpFPToSI:        "fptosi",
	OpUIToFP:        "uitofp",
	OpSIToFP:        "sitofp",
	OpBitCast:       "bitcast",
	OpAlloca:        "alloca",
	OpLoad:          "load",
	OpStore:         "store",
	OpGetElementPtr: "getelementptr",
	OpExtractValue:  "extractvalue",
	OpInsertValue:   "insertvalue",
	OpPhi:           "phi",
	OpSelect:        "select",
	OpCall:          "call",
	OpRet:           "ret",
	OpBr:            "br",
	OpCondBr:        "condbr",
	OpSwitch:        "switch",
	OpUnreachable:   "unreachable",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "unknown"
}

// IsTerminator reports whether op ends a basic block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpRet, OpBr, OpCondBr, OpSwitch, OpUnreachable:
		return true
	default:
		return false
	}
}

// Predicate is the comparison predicate carried by an ICmp or FCmp
// instruction.
type Predicate uint8

const (
	PredEQ Predicate = iota
	PredNE
	PredULT
	PredULE
	PredUGT
	PredUGE
	PredSLT
	PredSLE
	PredSGT
	PredSGE

	// Float-only ordered/unordered predicates.
	PredOEQ
	PredONE
	PredOLT
	PredOLE
	PredOGT
	PredOGE
	PredORD
	PredUNO
	PredUEQ
	PredUNE
	PredUGTF
	PredUGEF
	PredULTF
	PredULEF
)

var predicateNames = [...]string{
	PredEQ: "eq", PredNE: "ne",
	PredULT: "ult", PredULE: "ule", PredUGT: "ugt", PredUGE: "uge",
	PredSLT: "slt", PredSLE: "sle", PredSGT: "sgt", PredSGE: "sge",
	PredOEQ: "oeq", PredONE: "one", PredOLT: "olt", PredOLE: "ole",
	PredOGT: "ogt", PredOGE: "oge", PredORD: "ord", PredUNO: "uno",
	PredUEQ: "ueq", PredUNE: "une", PredUGTF: "ugt.f", PredUGEF: "uge.f",
	PredULTF: "ult.f", PredULEF: "ule.f",
}

func (p Predicate) String() string {
	if int(p) < len(predicateNames) && predicateNames[p] != "" {
		return predicateNames[p]
	}
	return "unknown-predicate"
}

// IsUnsigned reports whether p is one of the unsigned integer
// comparison predicates.
func (p Predicate) IsUnsigned() bool {
	switch p {
	case PredULT, PredULE, PredUGT, PredUGE:
		return true
	default:
		return false
	}
}

// IsSigned reports whether p is one of the signed integer comparison
// predicates.
func (p Predicate) IsSigned() bool {
	switch p {
	case PredSLT, PredSLE, PredSGT, PredSGE:
		return true
	default:
		return false
	}
}
