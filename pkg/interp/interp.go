// Package interp implements the per-function interpreter of §4.10: a
// worklist over one function's basic blocks, each visited by walking
// its instructions in order and invoking the transfer of each
// instruction's opcode on the operand Domains looked up in the
// working state. Grounded on pkg/cpu.Exec's single giant opcode
// switch — except each case calls a Domain transfer method instead of
// mutating a concrete register.
package interp

import (
	"errors"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/config"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/constructors"
	"github.com/rainoftime/canal/pkg/ir"
	"github.com/rainoftime/canal/pkg/state"
)

// CallHandler invokes the inter-function driver for a call
// instruction. Kept local to this package (rather than depending on
// pkg/driver) so pkg/driver can import pkg/interp without a cycle;
// *driver.Driver implements this interface.
type CallHandler interface {
	Call(callee *ir.Function, args []domain.Domain) (domain.Domain, error)
}

// Function is one function's interpreter: the per-block input/output
// states it has computed so far, and the visit counts driving §4.10
// step 5's widening threshold.
type Function struct {
	Fn    *ir.Function
	Cfg   *config.Config
	Cons  *constructors.Constructors
	Calls CallHandler

	Input  map[ir.ValueID]*state.State
	Output map[ir.ValueID]*state.State
	visits map[ir.ValueID]int

	worklist []*ir.BasicBlock
	queued   map[ir.ValueID]bool
}

// New returns an interpreter over fn, ready to Run.
func New(fn *ir.Function, cfg *config.Config, cons *constructors.Constructors, calls CallHandler) *Function {
	return &Function{
		Fn:     fn,
		Cfg:    cfg,
		Cons:   cons,
		Calls:  calls,
		Input:  map[ir.ValueID]*state.State{},
		Output: map[ir.ValueID]*state.State{},
		visits: map[ir.ValueID]int{},
		queued: map[ir.ValueID]bool{},
	}
}

// Run drives the worklist to a fixed point, starting from
// functionInput joined into the entry block, and returns the join of
// every visited block's output state; its Returned field holds what
// the reachable `ret` instructions returned (nil if none has run).
func (f *Function) Run(functionInput *state.State) (*state.State, error) {
	entry := f.Fn.Entry()
	if entry == nil {
		return nil, canalerr.New(canalerr.UnsupportedType, "interp-run", "function has no entry block (external)")
	}
	if in, ok := f.Input[entry.ID()]; ok {
		if err := in.JoinFrom(functionInput); err != nil {
			return nil, err
		}
	} else {
		f.Input[entry.ID()] = functionInput.Clone()
	}
	f.enqueue(entry)

	for len(f.worklist) > 0 {
		blk := f.worklist[0]
		f.worklist = f.worklist[1:]
		f.queued[blk.ID()] = false

		changed, err := f.runBlock(blk)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}
		for _, succ := range blk.Succs {
			f.enqueue(succ)
		}
	}

	// The summary joins every visited block's output, not just blocks
	// ending in ret: a global or heap mutation on a path that never
	// returns (an infinite loop, an unreachable terminator) is still a
	// globally-visible side effect the caller must see.
	summary := state.New(f.Cons)
	for _, blk := range f.Fn.Blocks {
		out, ok := f.Output[blk.ID()]
		if !ok {
			continue
		}
		if err := summary.JoinFrom(out); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

func (f *Function) enqueue(blk *ir.BasicBlock) {
	if f.queued[blk.ID()] {
		return
	}
	f.queued[blk.ID()] = true
	f.worklist = append(f.worklist, blk)
}

// blockInput accumulates other into the block's recorded input
// (rather than recomputing a fresh join every visit), per §4.10 step
// 2. The entry block has no predecessors to fold in beyond
// functionInput, already folded into it by Run.
func (f *Function) blockInput(blk *ir.BasicBlock) (*state.State, error) {
	cur, ok := f.Input[blk.ID()]
	if !ok {
		cur = state.New(f.Cons)
		f.Input[blk.ID()] = cur
	}
	for _, pred := range blk.Preds {
		predOut, ok := f.Output[pred.ID()]
		if !ok {
			continue
		}
		if err := cur.JoinFrom(predOut); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// runBlock computes blk's new output from its accumulated input and
// reports whether the output changed from its previously recorded
// value.
func (f *Function) runBlock(blk *ir.BasicBlock) (bool, error) {
	in, err := f.blockInput(blk)
	if err != nil {
		return false, err
	}
	working := in.Clone()

	for _, instr := range blk.Instrs {
		if err := f.runInstr(working, blk, instr); err != nil {
			if !downgradable(err) {
				return false, err
			}
			f.topOut(working, instr)
		}
	}

	f.visits[blk.ID()]++
	if prev, ok := f.Output[blk.ID()]; ok {
		if f.visits[blk.ID()] > f.Cfg.WideningThreshold {
			if err := widenState(working, prev); err != nil {
				return false, err
			}
		}
		if working.Equal(prev) {
			return false, nil
		}
	}
	f.Output[blk.ID()] = working
	return true, nil
}

// downgradable reports whether err is one of the non-fatal canalerr
// kinds pkg/interp is required to absorb per §7/§4.11: the transfer
// simply could not produce a precise answer for this instruction, as
// opposed to an *canalerr.AssertionFailed precondition violation
// (which panics rather than returning an error) or any other error
// indicating a genuine bug.
func downgradable(err error) bool {
	var ce *canalerr.Error
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Kind {
	case canalerr.UnsupportedType, canalerr.UnsupportedOpcode, canalerr.NotImplemented:
		return true
	default:
		return false
	}
}

// topOut records a top-valued result for instr's own result, the
// over-approximation a downgraded transfer error leaves behind so the
// rest of the function can still be interpreted. Void-typed
// instructions (store, br, ret, ...) produce nothing to bind.
func (f *Function) topOut(working *state.State, instr *ir.Instruction) {
	if _, isVoid := instr.Type().(ir.VoidType); isVoid {
		return
	}
	d, err := f.Cons.FromType(instr.Type())
	if err != nil {
		return
	}
	d.SetTop()
	bind(working, instr, d)
}

// widenState replaces, for each variable and block live in both new
// and prev, new's Join result with its Widener.Widen result against
// prev's value — domains without a Widener (Set, Bits, Float,
// Pointer, aggregates) keep the ordinary join already computed, since
// they terminate on their own (threshold collapse or finite height).
func widenState(newState, prev *state.State) error {
	for k, v := range newState.Vars {
		p, ok := prev.Vars[k]
		if !ok {
			continue
		}
		if w, ok := v.(domain.Widener); ok {
			if err := w.Widen(p); err != nil {
				return err
			}
		}
	}
	for k, b := range newState.Blocks {
		p, ok := prev.Blocks[k]
		if !ok {
			continue
		}
		if w, ok := b.Value.(domain.Widener); ok {
			if err := w.Widen(p.Value); err != nil {
				return err
			}
		}
	}
	for k, b := range newState.Globals {
		p, ok := prev.Globals[k]
		if !ok {
			continue
		}
		if w, ok := b.Value.(domain.Widener); ok {
			if err := w.Widen(p.Value); err != nil {
				return err
			}
		}
	}
	if newState.Returned != nil && prev.Returned != nil {
		if w, ok := newState.Returned.(domain.Widener); ok {
			if err := w.Widen(prev.Returned); err != nil {
				return err
			}
		}
	}
	return nil
}
