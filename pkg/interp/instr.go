package interp

import (
	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/aggregate"
	"github.com/rainoftime/canal/pkg/domain/pointer"
	"github.com/rainoftime/canal/pkg/ir"
	"github.com/rainoftime/canal/pkg/state"
)

// runInstr dispatches instr.Op the same way pkg/cpu.Exec dispatches an
// inst.OpCode: one switch, one case per opcode, each case calling a
// Domain transfer method instead of mutating a concrete register.
func (f *Function) runInstr(working *state.State, blk *ir.BasicBlock, instr *ir.Instruction) error {
	switch instr.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpUDiv, ir.OpSDiv, ir.OpURem, ir.OpSRem,
		ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv,
		ir.OpShl, ir.OpLShr, ir.OpAShr, ir.OpAnd, ir.OpOr, ir.OpXor:
		return f.runBinary(working, instr)
	case ir.OpICmp:
		return f.runICmp(working, instr)
	case ir.OpFCmp:
		return f.runFCmp(working, instr)
	case ir.OpTrunc, ir.OpZExt, ir.OpSExt, ir.OpFPToUI, ir.OpFPToSI, ir.OpSIToFP, ir.OpUIToFP:
		return f.runCast(working, instr)
	case ir.OpBitCast:
		return f.runBitCast(working, instr)
	case ir.OpAlloca:
		return f.runAlloca(working, instr)
	case ir.OpLoad:
		return f.runLoad(working, instr)
	case ir.OpStore:
		return f.runStore(working, instr)
	case ir.OpGetElementPtr:
		return f.runGEP(working, instr)
	case ir.OpExtractValue:
		return f.runExtractValue(working, instr)
	case ir.OpInsertValue:
		return f.runInsertValue(working, instr)
	case ir.OpPhi:
		return f.runPhi(working, instr)
	case ir.OpSelect:
		return f.runSelect(working, instr)
	case ir.OpCall:
		return f.runCall(working, instr)
	case ir.OpRet:
		return f.runRet(working, instr)
	case ir.OpBr, ir.OpCondBr, ir.OpSwitch, ir.OpUnreachable:
		// No data effect: Run propagates working's state to every
		// entry in blk.Succs unconditionally, a sound over-
		// approximation of whichever edge is actually taken.
		return nil
	default:
		return canalerr.UnsupportedOp(instr.Op.String(), "interpreter has no case for this opcode")
	}
}

func bind(working *state.State, instr *ir.Instruction, v domain.Domain) {
	if v == nil {
		return
	}
	working.Vars[instr.ID()] = v
}

func resolveAll(working *state.State, vs []ir.Value) ([]domain.Domain, error) {
	out := make([]domain.Domain, len(vs))
	for i, v := range vs {
		d, err := working.Resolve(v)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func concreteBounds(d domain.Domain) (lo, hi uint64, ok bool) {
	b, isBounder := d.(domain.Bounder)
	if !isBounder {
		return 0, 0, false
	}
	return b.UnsignedBounds()
}

func (f *Function) runBinary(working *state.State, instr *ir.Instruction) error {
	ops, err := resolveAll(working, instr.Operands)
	if err != nil {
		return err
	}
	dst, err := f.Cons.FromType(instr.Typ)
	if err != nil {
		return err
	}
	if err := binaryTransfer(instr.Op, dst, ops[0], ops[1]); err != nil {
		return err
	}
	bind(working, instr, dst)
	return nil
}

// binaryTransfer maps an arithmetic/bitwise opcode onto the matching
// Domain method. Float opcodes share the integer method names (fadd
// reuses Add, fdiv reuses SDiv) since the destination Domain's own
// kind, not the opcode, determines whether the operation is integer
// or floating-point arithmetic.
func binaryTransfer(op ir.Opcode, dst, a, b domain.Domain) error {
	switch op {
	case ir.OpAdd, ir.OpFAdd:
		return dst.Add(a, b)
	case ir.OpSub, ir.OpFSub:
		return dst.Sub(a, b)
	case ir.OpMul, ir.OpFMul:
		return dst.Mul(a, b)
	case ir.OpUDiv:
		return dst.UDiv(a, b)
	case ir.OpSDiv, ir.OpFDiv:
		return dst.SDiv(a, b)
	case ir.OpURem:
		return dst.URem(a, b)
	case ir.OpSRem:
		return dst.SRem(a, b)
	case ir.OpShl:
		return dst.Shl(a, b)
	case ir.OpLShr:
		return dst.LShr(a, b)
	case ir.OpAShr:
		return dst.AShr(a, b)
	case ir.OpAnd:
		return dst.And(a, b)
	case ir.OpOr:
		return dst.Or(a, b)
	case ir.OpXor:
		return dst.Xor(a, b)
	default:
		return canalerr.UnsupportedOp(op.String(), "not a binary transfer")
	}
}

func (f *Function) runICmp(working *state.State, instr *ir.Instruction) error {
	ops, err := resolveAll(working, instr.Operands)
	if err != nil {
		return err
	}
	dst, err := f.Cons.FromType(instr.Typ)
	if err != nil {
		return err
	}
	if err := dst.ICmp(instr.Pred, ops[0], ops[1]); err != nil {
		return err
	}
	bind(working, instr, dst)
	return nil
}

func (f *Function) runFCmp(working *state.State, instr *ir.Instruction) error {
	ops, err := resolveAll(working, instr.Operands)
	if err != nil {
		return err
	}
	dst, err := f.Cons.FromType(instr.Typ)
	if err != nil {
		return err
	}
	if err := dst.FCmp(instr.Pred, ops[0], ops[1]); err != nil {
		return err
	}
	bind(working, instr, dst)
	return nil
}

func (f *Function) runCast(working *state.State, instr *ir.Instruction) error {
	a, err := working.Resolve(instr.Operands[0])
	if err != nil {
		return err
	}
	dst, err := f.Cons.FromType(instr.Typ)
	if err != nil {
		return err
	}
	switch instr.Op {
	case ir.OpTrunc:
		err = dst.Trunc(a)
	case ir.OpZExt:
		err = dst.ZExt(a)
	case ir.OpSExt:
		err = dst.SExt(a)
	case ir.OpFPToUI:
		err = dst.FPToUI(a)
	case ir.OpFPToSI:
		err = dst.FPToSI(a)
	case ir.OpSIToFP:
		err = dst.SIToFP(a)
	case ir.OpUIToFP:
		err = dst.UIToFP(a)
	default:
		err = canalerr.UnsupportedOp(instr.Op.String(), "not a cast transfer")
	}
	if err != nil {
		return err
	}
	bind(working, instr, dst)
	return nil
}

// runBitCast is split out from runCast: bitcast is meaningful only on
// pointers and Pointer.BitCast is not part of the Domain interface
// (it returns a concrete *pointer.Pointer, not an in-place transfer).
func (f *Function) runBitCast(working *state.State, instr *ir.Instruction) error {
	a, err := working.Resolve(instr.Operands[0])
	if err != nil {
		return err
	}
	p, ok := a.(*pointer.Pointer)
	if !ok {
		return canalerr.New(canalerr.UnsupportedType, "bitcast", "operand is not a pointer")
	}
	pt, ok := instr.Typ.(ir.PointerType)
	if !ok {
		return canalerr.New(canalerr.UnsupportedType, "bitcast", "result type is not a pointer")
	}
	bind(working, instr, p.BitCast(pt.Elem))
	return nil
}

// runAlloca builds a fresh block whose Value is a length-1 FixedArray
// wrapping the allocated type's default: LLVM-style GEP addresses
// every pointer as if into an array of its pointee type, so the
// leading index of any offset chain reaching this block is the
// "which instance" index (always a concrete 0 for a plain alloca) and
// needs something to descend through. A nonzero leading index is then
// correctly caught by FixedArray's own out-of-bounds assertion,
// matching "out-of-bounds concrete access is a fatal precondition
// violation".
func (f *Function) runAlloca(working *state.State, instr *ir.Instruction) error {
	pt, ok := instr.Typ.(ir.PointerType)
	if !ok {
		return canalerr.New(canalerr.UnsupportedType, "alloca", "alloca result must be a pointer type")
	}
	def, err := f.Cons.FromType(pt.Elem)
	if err != nil {
		return err
	}
	wrapped := aggregate.NewFixedArray(pt.Elem, 1, def)
	blk := state.NewBlock(instr.String(), instr.ID(), wrapped)
	working.SetBlock(instr.ID(), blk, false)

	p := pointer.New(pt.Elem)
	zero, err := f.Cons.FromConstant(ir.ConstInt{Typ: ir.IntType{Width: 64}, Val: 0}, instr.ID(), working)
	if err != nil {
		return err
	}
	if err := p.AddTarget(instr.ID(), pointer.TagBlock, instr.ID(), nil, []domain.Domain{zero}, nil); err != nil {
		return err
	}
	bind(working, instr, p)
	return nil
}

func bitWidth(t ir.Type) int {
	if it, ok := t.(ir.IntType); ok {
		return it.Width
	}
	return 0
}

func (f *Function) runLoad(working *state.State, instr *ir.Instruction) error {
	a, err := working.Resolve(instr.Operands[0])
	if err != nil {
		return err
	}
	p, ok := a.(*pointer.Pointer)
	if !ok {
		return canalerr.New(canalerr.UnsupportedType, "load", "operand is not a pointer")
	}
	v, ok, err := p.Load(working, bitWidth(instr.Typ))
	if err != nil {
		return err
	}
	if !ok {
		v, err = f.Cons.FromType(instr.Typ)
		if err != nil {
			return err
		}
	}
	bind(working, instr, v)
	return nil
}

func (f *Function) runStore(working *state.State, instr *ir.Instruction) error {
	value, err := working.Resolve(instr.Operands[0])
	if err != nil {
		return err
	}
	a, err := working.Resolve(instr.Operands[1])
	if err != nil {
		return err
	}
	p, ok := a.(*pointer.Pointer)
	if !ok {
		return canalerr.New(canalerr.UnsupportedType, "store", "operand is not a pointer")
	}
	return p.Store(working, value)
}

func (f *Function) runGEP(working *state.State, instr *ir.Instruction) error {
	a, err := working.Resolve(instr.Operands[0])
	if err != nil {
		return err
	}
	basePtr, ok := a.(*pointer.Pointer)
	if !ok {
		return canalerr.New(canalerr.UnsupportedType, "getelementptr", "base is not a pointer")
	}
	offsets, err := resolveAll(working, instr.Indices)
	if err != nil {
		return err
	}
	pt, ok := instr.Typ.(ir.PointerType)
	if !ok {
		return canalerr.New(canalerr.UnsupportedType, "getelementptr", "result type is not a pointer")
	}
	result, err := basePtr.GetElementPtr(offsets, pt.Elem)
	if err != nil {
		return err
	}
	bind(working, instr, result)
	return nil
}

// descendRead walks indices into agg, as FixedArray/SingleItemArray
// already do their own bounds checking on Get; a Struct needs a known
// concrete index since its fields have no common type.
func descendRead(agg domain.Domain, indices []domain.Domain) (domain.Domain, error) {
	cur := agg
	for _, idx := range indices {
		switch c := cur.(type) {
		case *aggregate.FixedArray:
			cur = c.Get(idx)
		case *aggregate.SingleItemArray:
			cur = c.Get(idx)
		case *aggregate.Struct:
			lo, hi, ok := concreteBounds(idx)
			if !ok || lo != hi {
				return nil, canalerr.New(canalerr.UnsupportedType, "extractvalue", "struct field index must be a known constant")
			}
			cur = c.Field(int(lo))
		default:
			return nil, canalerr.New(canalerr.UnsupportedType, "extractvalue", "cannot index into this domain")
		}
	}
	return cur, nil
}

func (f *Function) runExtractValue(working *state.State, instr *ir.Instruction) error {
	agg, err := working.Resolve(instr.Operands[0])
	if err != nil {
		return err
	}
	indices, err := resolveAll(working, instr.Indices)
	if err != nil {
		return err
	}
	result, err := descendRead(agg, indices)
	if err != nil {
		return err
	}
	bind(working, instr, result)
	return nil
}

// writeAt clones root, descends through every index but the last
// (each must be a single concrete index; insertvalue indices are
// always compile-time constants in well-typed IR), and overwrites the
// leaf with value.
func writeAt(root domain.Domain, indices []domain.Domain, value domain.Domain) (domain.Domain, error) {
	cp := root.Clone()
	cur := cp
	for _, idx := range indices[:len(indices)-1] {
		switch c := cur.(type) {
		case *aggregate.FixedArray:
			lo, hi, ok := concreteBounds(idx)
			if !ok || lo != hi {
				return nil, canalerr.New(canalerr.UnsupportedType, "insertvalue", "array index must be a known constant")
			}
			cur = c.Elems[lo]
		case *aggregate.Struct:
			lo, hi, ok := concreteBounds(idx)
			if !ok || lo != hi {
				return nil, canalerr.New(canalerr.UnsupportedType, "insertvalue", "struct field index must be a known constant")
			}
			cur = c.Field(int(lo))
		default:
			return nil, canalerr.New(canalerr.UnsupportedType, "insertvalue", "cannot index into this domain")
		}
	}
	last := indices[len(indices)-1]
	switch c := cur.(type) {
	case *aggregate.FixedArray:
		if err := c.Set(last, value); err != nil {
			return nil, err
		}
	case *aggregate.Struct:
		lo, hi, ok := concreteBounds(last)
		if !ok || lo != hi {
			return nil, canalerr.New(canalerr.UnsupportedType, "insertvalue", "struct field index must be a known constant")
		}
		c.SetField(int(lo), value.Clone())
	default:
		return nil, canalerr.New(canalerr.UnsupportedType, "insertvalue", "cannot index into this domain")
	}
	return cp, nil
}

func (f *Function) runInsertValue(working *state.State, instr *ir.Instruction) error {
	agg, err := working.Resolve(instr.Operands[0])
	if err != nil {
		return err
	}
	value, err := working.Resolve(instr.Operands[1])
	if err != nil {
		return err
	}
	indices, err := resolveAll(working, instr.Indices)
	if err != nil {
		return err
	}
	if len(indices) == 0 {
		bind(working, instr, value.Clone())
		return nil
	}
	result, err := writeAt(agg, indices, value)
	if err != nil {
		return err
	}
	bind(working, instr, result)
	return nil
}

// runPhi takes its value from each live predecessor's *output* state
// (§4.10 step 3), joining across every incoming pair whose predecessor
// has already produced an output; a predecessor not yet visited
// contributes nothing this round and is picked up once it runs.
func (f *Function) runPhi(working *state.State, instr *ir.Instruction) error {
	result, err := f.Cons.FromType(instr.Typ)
	if err != nil {
		return err
	}
	for _, inc := range instr.Incoming {
		predOut, ok := f.Output[inc.Block.ID()]
		if !ok {
			continue
		}
		v, err := predOut.Resolve(inc.Value)
		if err != nil {
			return err
		}
		joined := result.Clone()
		if err := joined.Join(result, v); err != nil {
			return err
		}
		result = joined
	}
	bind(working, instr, result)
	return nil
}

// runSelect narrows to one branch only when the condition's bounds
// pin it to a single boolean value; otherwise it joins both, same as
// the teacher's STOKE cost model treats an unknown branch outcome as
// reachable through either path.
func (f *Function) runSelect(working *state.State, instr *ir.Instruction) error {
	ops, err := resolveAll(working, instr.Operands)
	if err != nil {
		return err
	}
	cond, trueVal, falseVal := ops[0], ops[1], ops[2]
	if lo, hi, ok := concreteBounds(cond); ok && lo == hi {
		if lo == 0 {
			bind(working, instr, falseVal.Clone())
		} else {
			bind(working, instr, trueVal.Clone())
		}
		return nil
	}
	dst, err := f.Cons.FromType(instr.Typ)
	if err != nil {
		return err
	}
	if err := dst.Join(trueVal, falseVal); err != nil {
		return err
	}
	bind(working, instr, dst)
	return nil
}

func (f *Function) runCall(working *state.State, instr *ir.Instruction) error {
	args, err := resolveAll(working, instr.Operands)
	if err != nil {
		return err
	}
	var result domain.Domain
	if instr.Callee == nil || instr.Callee.External {
		if _, void := instr.Typ.(ir.VoidType); void {
			return nil
		}
		result, err = f.Cons.FromType(instr.Typ)
		if err != nil {
			return err
		}
		result.SetTop()
	} else {
		result, err = f.Calls.Call(instr.Callee, args)
		if err != nil {
			return err
		}
	}
	bind(working, instr, result)
	return nil
}

func (f *Function) runRet(working *state.State, instr *ir.Instruction) error {
	if len(instr.Operands) == 0 {
		return nil
	}
	v, err := working.Resolve(instr.Operands[0])
	if err != nil {
		return err
	}
	if working.Returned == nil {
		working.Returned = v.Clone()
		return nil
	}
	joined := working.Returned.Clone()
	if err := joined.Join(working.Returned, v); err != nil {
		return err
	}
	working.Returned = joined
	return nil
}
