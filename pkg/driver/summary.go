package driver

import (
	"sort"

	"github.com/rainoftime/canal/pkg/interp"
	"github.com/rainoftime/canal/pkg/ir"
	"github.com/rainoftime/canal/pkg/state"
)

// FunctionSummary is the driver's per-function result (§3/§4.11): the
// function it describes, the joined state every reachable block
// produced (nil if the function never finished, see Err), and the
// error that aborted it, if any. Interp is the underlying
// per-function interpreter instance, kept around so a caller wanting
// the full per-block dump (§6's "for each basic block: its input
// state, then per instruction the produced Domain, then the output
// state") can walk Interp.Input/Interp.Output directly instead of
// Output alone, which only carries the function's final joined
// summary. Grounded on pkg/result.Table's Rule: a small, read-only
// value type meant to be copied out of the table rather than
// referenced while the table's mutex is held.
type FunctionSummary struct {
	Function *ir.Function
	Output   *state.State
	Interp   *interp.Function
	Err      error
}

// Summaries returns a copy of the completed summary table, sorted by
// function name — analogous to result.Table.Rules()'s sorted copy
// returned under lock.
func (d *Driver) Summaries() []FunctionSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]FunctionSummary, 0, len(d.summaries))
	for _, s := range d.summaries {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Function.Name < out[j].Function.Name })
	return out
}

// Summary returns the single recorded summary for fn, if any.
func (d *Driver) Summary(fn *ir.Function) (FunctionSummary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.summaries[fn.ID()]
	if !ok {
		return FunctionSummary{}, false
	}
	return *s, true
}
