package driver

import (
	"testing"

	"github.com/rainoftime/canal/pkg/config"
	"github.com/rainoftime/canal/pkg/domain/integer"
	"github.com/rainoftime/canal/pkg/ir"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.EnabledIntegerDomains = config.DomainInterval
	cfg.Workers = 2
	return cfg
}

// simpleModule builds a single function `main(a i8) i8 { ret a+1 }`.
func simpleModule() *ir.Module {
	mod := ir.NewModule()
	fn := mod.NewFunction("main", ir.IntType{Width: 8})
	arg := fn.AddParam("a", ir.IntType{Width: 8})
	entry := fn.NewBlock("entry")
	r := entry.Emit("r", ir.OpAdd, ir.IntType{Width: 8}, arg, ir.ConstInt{Typ: ir.IntType{Width: 8}, Val: 1})
	entry.Emit("", ir.OpRet, ir.VoidType{}, r)
	return mod
}

func TestNewBuildsGlobalsFromModule(t *testing.T) {
	mod := ir.NewModule()
	g := mod.NewGlobal("counter", ir.IntType{Width: 8}, ir.ConstInt{Typ: ir.IntType{Width: 8}, Val: 7}, false)
	d, err := New(mod, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	blk, ok := d.globals.Globals[g.ID()]
	if !ok {
		t.Fatal("New should eagerly build a block for every module global")
	}
	_ = blk
}

func TestAnalyzeSingleFunction(t *testing.T) {
	mod := simpleModule()
	d, err := New(mod, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summaries := d.Analyze()
	if len(summaries) != 1 {
		t.Fatalf("len(summaries) = %d, want 1", len(summaries))
	}
	s := summaries[0]
	if s.Err != nil {
		t.Fatalf("summary error: %v", s.Err)
	}
	if s.Output.Returned == nil {
		t.Fatal("Output.Returned should be set")
	}
}

func TestAnalyzeExternalFunctionSkipped(t *testing.T) {
	mod := ir.NewModule()
	fn := mod.NewFunction("extern", ir.IntType{Width: 8})
	fn.External = true
	d, err := New(mod, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summaries := d.Analyze()
	if len(summaries) != 0 {
		t.Errorf("len(summaries) = %d, want 0 (external functions are not analyzed)", len(summaries))
	}
}

// callerCallee builds caller() -> callee(x) { ret x+1 }; caller calls
// callee with a constant and returns its result.
func callerCallee() *ir.Module {
	mod := ir.NewModule()
	callee := mod.NewFunction("callee", ir.IntType{Width: 8})
	cArg := callee.AddParam("x", ir.IntType{Width: 8})
	cEntry := callee.NewBlock("entry")
	cr := cEntry.Emit("r", ir.OpAdd, ir.IntType{Width: 8}, cArg, ir.ConstInt{Typ: ir.IntType{Width: 8}, Val: 1})
	cEntry.Emit("", ir.OpRet, ir.VoidType{}, cr)

	caller := mod.NewFunction("caller", ir.IntType{Width: 8})
	callerEntry := caller.NewBlock("entry")
	callInstr := callerEntry.Emit("call", ir.OpCall, ir.IntType{Width: 8}, ir.ConstInt{Typ: ir.IntType{Width: 8}, Val: 4})
	callInstr.Callee = callee
	callerEntry.Emit("", ir.OpRet, ir.VoidType{}, callInstr)
	return mod
}

func TestAnalyzeCallPropagatesReturnValue(t *testing.T) {
	mod := callerCallee()
	d, err := New(mod, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summaries := d.Analyze()
	var found bool
	for _, s := range summaries {
		if s.Function.Name == "caller" {
			found = true
			if s.Err != nil {
				t.Fatalf("caller summary error: %v", s.Err)
			}
			if s.Output.Returned == nil {
				t.Fatal("caller's Returned should be set")
			}
			iv, ok := s.Output.Returned.(*integer.Interval)
			if !ok {
				t.Fatalf("Returned = %T, want *integer.Interval", s.Output.Returned)
			}
			if iv.Unsigned.From != 5 || iv.Unsigned.To != 5 {
				t.Errorf("caller's returned value = [%d,%d], want {5} (4+1)", iv.Unsigned.From, iv.Unsigned.To)
			}
		}
	}
	if !found {
		t.Fatal("expected a summary for function caller")
	}
}

func TestCallRecursiveGuardReturnsTop(t *testing.T) {
	mod := ir.NewModule()
	fn := mod.NewFunction("recur", ir.IntType{Width: 8})
	entry := fn.NewBlock("entry")
	callInstr := entry.Emit("call", ir.OpCall, ir.IntType{Width: 8})
	callInstr.Callee = fn
	entry.Emit("", ir.OpRet, ir.VoidType{}, callInstr)

	d, err := New(mod, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summaries := d.Analyze()
	if len(summaries) != 1 {
		t.Fatalf("len(summaries) = %d, want 1", len(summaries))
	}
	s := summaries[0]
	if s.Err != nil {
		t.Fatalf("summary error: %v", s.Err)
	}
	if s.Output.Returned == nil {
		t.Fatal("Returned should be set even for a recursive call")
	}
	if !s.Output.Returned.IsTop() {
		t.Error("a call re-entering an already-active function should be approximated as top")
	}
}

func TestSummaryLookupByFunction(t *testing.T) {
	mod := simpleModule()
	d, err := New(mod, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.Analyze()
	fn := mod.FunctionByName("main")
	s, ok := d.Summary(fn)
	if !ok {
		t.Fatal("Summary should find the recorded summary for main")
	}
	if s.Function != fn {
		t.Error("Summary should return the summary for the requested function")
	}
}

func TestBudgetExceededStopsAnalysis(t *testing.T) {
	cfg := testConfig()
	cfg.StepBudget = 0
	mod := simpleModule()
	d, err := New(mod, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// StepBudget <= 0 means unbounded; this exercises budgetExceeded's
	// early-return branch rather than an actual cutoff.
	if d.budgetExceeded() {
		t.Error("a non-positive StepBudget should mean unbounded, not already exceeded")
	}
	cfg2 := testConfig()
	cfg2.StepBudget = 1
	d2, err := New(simpleModule(), cfg2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d2.jobs.Add(1)
	if !d2.budgetExceeded() {
		t.Error("budgetExceeded should report true once jobs reaches StepBudget")
	}
}
