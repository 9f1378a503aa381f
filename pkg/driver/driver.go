// Package driver implements the inter-function driver of §4.11: a
// worklist of function-entry jobs drained by a bounded goroutine pool,
// grounded on pkg/search.WorkerPool's channel-of-tasks plus
// sync/atomic counters, and a mutex-guarded summary table analogous to
// pkg/result.Table. Calls are one level context-sensitive: a call
// site's arguments seed the callee's input state synchronously, and
// the callee's returned value plus its effect on globals flow back to
// the caller; the driver re-runs every function across rounds until
// the shared global state stops changing or the step budget runs out.
package driver

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/config"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/aggregate"
	"github.com/rainoftime/canal/pkg/domain/constructors"
	"github.com/rainoftime/canal/pkg/interp"
	"github.com/rainoftime/canal/pkg/ir"
	"github.com/rainoftime/canal/pkg/state"
)

// Driver owns one module's worth of analysis: the per-function
// interpreters it has built so far, the shared global state they read
// and write, and the running summary table.
type Driver struct {
	Module *ir.Module
	Cfg    *config.Config
	Cons   *constructors.Constructors
	Log    *slog.Logger

	mu        sync.Mutex
	funcs     map[ir.ValueID]*interp.Function
	locks     map[ir.ValueID]*sync.Mutex
	active    map[ir.ValueID]bool
	summaries map[ir.ValueID]*FunctionSummary
	globals   *state.State

	jobs atomic.Int64
}

// New returns a driver over mod, using cfg (config.Default() if nil).
// Global blocks are built eagerly from mod.Globals, wrapped the same
// length-1 FixedArray way pkg/interp.runAlloca wraps a stack
// allocation, so a GEP's leading "which instance" index has something
// to descend through.
func New(mod *ir.Module, cfg *config.Config) (*Driver, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	d := &Driver{
		Module:    mod,
		Cfg:       cfg,
		Cons:      constructors.New(cfg),
		Log:       slog.Default(),
		funcs:     map[ir.ValueID]*interp.Function{},
		locks:     map[ir.ValueID]*sync.Mutex{},
		active:    map[ir.ValueID]bool{},
		summaries: map[ir.ValueID]*FunctionSummary{},
	}
	g, err := d.buildGlobals()
	if err != nil {
		return nil, err
	}
	d.globals = g
	return d, nil
}

func (d *Driver) buildGlobals() (*state.State, error) {
	g := state.New(d.Cons)
	for _, gv := range d.Module.Globals {
		pt, ok := gv.Typ.(ir.PointerType)
		if !ok {
			return nil, canalerr.New(canalerr.UnsupportedType, "global", "global type must be a pointer")
		}
		var def domain.Domain
		var err error
		if c, ok := gv.Init.(ir.Constant); ok {
			def, err = d.Cons.FromConstant(c, gv.ID(), g)
		} else {
			def, err = d.Cons.FromType(pt.Elem)
		}
		if err != nil {
			return nil, err
		}
		wrapped := aggregate.NewFixedArray(pt.Elem, 1, def)
		g.SetBlock(gv.ID(), state.NewBlock(gv.Name, gv.ID(), wrapped), true)
	}
	return g, nil
}

// Analyze runs every non-external function to a fixed point, including
// the effect calls between them have on shared globals, and returns
// the resulting summaries sorted by function name. Grounded on
// search.WorkerPool.RunTasks: a bounded pool of goroutines draining a
// channel of jobs, re-dispatched across rounds until the module-wide
// state stops changing.
func (d *Driver) Analyze() []FunctionSummary {
	var targets []*ir.Function
	for _, fn := range d.Module.Functions {
		if !fn.External {
			targets = append(targets, fn)
		}
	}

	workers := d.Cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(targets) && len(targets) > 0 {
		workers = len(targets)
	}

	for round := 0; ; round++ {
		before := d.globalsSnapshot()

		ch := make(chan *ir.Function, len(targets))
		for _, fn := range targets {
			ch <- fn
		}
		close(ch)

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for fn := range ch {
					d.runRoundJob(fn)
				}
			}()
		}
		wg.Wait()

		after := d.globalsSnapshot()
		d.Log.Debug("driver round complete", "round", round, "jobs", d.jobs.Load())
		if before.Equal(after) || d.budgetExceeded() {
			break
		}
	}
	return d.Summaries()
}

func (d *Driver) runRoundJob(fn *ir.Function) {
	if d.budgetExceeded() {
		return
	}
	input, err := d.entryInput(fn)
	if err != nil {
		d.recordSummary(fn, nil, err)
		return
	}
	out, err := d.analyzeFunction(fn, input)
	d.recordSummary(fn, out, err)
	if err == nil {
		d.mergeGlobals(out)
	}
}

// entryInput seeds fn's parameters as unconstrained (top) — a
// top-level function is, from the driver's point of view, reachable
// from any caller — joined with the current global snapshot.
func (d *Driver) entryInput(fn *ir.Function) (*state.State, error) {
	in := state.New(d.Cons)
	for _, p := range fn.Params {
		top, err := d.Cons.FromType(p.Typ)
		if err != nil {
			return nil, err
		}
		top.SetTop()
		in.Vars[p.ID()] = top
	}
	in.Globals = d.globalsSnapshot().Globals
	return in, nil
}

func (d *Driver) globalsSnapshot() *state.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := state.New(d.Cons)
	for id, b := range d.globals.Globals {
		cp.Globals[id] = b.Clone()
	}
	return cp
}

func (d *Driver) mergeGlobals(out *state.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.globals.JoinFrom(&state.State{Globals: out.Globals})
}

func (d *Driver) recordSummary(fn *ir.Function, out *state.State, err error) {
	f := d.funcFor(fn)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.summaries[fn.ID()] = &FunctionSummary{Function: fn, Output: out, Interp: f, Err: err}
}

func (d *Driver) budgetExceeded() bool {
	if d.Cfg.StepBudget <= 0 {
		return false
	}
	return d.jobs.Load() >= int64(d.Cfg.StepBudget)
}

func (d *Driver) lockFor(id ir.ValueID) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[id]
	if !ok {
		l = &sync.Mutex{}
		d.locks[id] = l
	}
	return l
}

func (d *Driver) funcFor(fn *ir.Function) *interp.Function {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.funcs[fn.ID()]
	if !ok {
		f = interp.New(fn, d.Cfg, d.Cons, d)
		d.funcs[fn.ID()] = f
	}
	return f
}

// analyzeFunction runs fn's interpreter to a fixed point, serialized
// per function (two jobs for the same function never interleave) and
// counted against the step budget. An AssertionFailed panic raised
// deep inside the interpreter is recovered here only, per §7, so one
// function's precondition violation downgrades its own summary rather
// than crashing the whole driver.
func (d *Driver) analyzeFunction(fn *ir.Function, input *state.State) (out *state.State, err error) {
	if d.budgetExceeded() {
		return nil, canalerr.New(canalerr.BudgetExhausted, "driver", "step budget exhausted")
	}
	d.jobs.Add(1)

	lock := d.lockFor(fn.ID())
	lock.Lock()
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			af, ok := r.(*canalerr.AssertionFailed)
			if !ok {
				panic(r)
			}
			d.Log.Warn("function aborted on assertion failure", "function", fn.Name, "detail", af.Detail)
			err = af
		}
	}()

	return d.funcFor(fn).Run(input)
}

// Call implements interp.CallHandler: a call site's arguments seed the
// callee's input, the callee is run to its own fixed point, and its
// returned value and global effects flow back to the caller. A callee
// already being interpreted somewhere in the current wave of work
// (whether a genuine recursive cycle or a concurrent, unrelated call
// from another goroutine) is conservatively approximated as top,
// which is always a sound over-approximation and avoids both infinite
// recursion and a self-deadlock on the per-function lock.
func (d *Driver) Call(callee *ir.Function, args []domain.Domain) (domain.Domain, error) {
	if !d.enter(callee.ID()) {
		return d.topResult(callee.RetType)
	}
	defer d.exit(callee.ID())

	in := state.New(d.Cons)
	for i, p := range callee.Params {
		if i < len(args) {
			in.Vars[p.ID()] = args[i].Clone()
		}
	}
	in.Globals = d.globalsSnapshot().Globals

	out, err := d.analyzeFunction(callee, in)
	d.recordSummary(callee, out, err)
	if err != nil {
		return nil, err
	}
	d.mergeGlobals(out)

	if out.Returned == nil {
		return d.topResult(callee.RetType)
	}
	return out.Returned, nil
}

func (d *Driver) topResult(t ir.Type) (domain.Domain, error) {
	if _, void := t.(ir.VoidType); void {
		return nil, nil
	}
	v, err := d.Cons.FromType(t)
	if err != nil {
		return nil, err
	}
	v.SetTop()
	return v, nil
}

func (d *Driver) enter(id ir.ValueID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active[id] {
		return false
	}
	d.active[id] = true
	return true
}

func (d *Driver) exit(id ir.ValueID) {
	d.mu.Lock()
	delete(d.active, id)
	d.mu.Unlock()
}
