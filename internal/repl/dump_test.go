package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rainoftime/canal/pkg/driver"
	"github.com/rainoftime/canal/pkg/ir"
)

func fixtureFunction() (*ir.Module, *ir.Function) {
	mod := ir.NewModule()
	fn := mod.NewFunction("addone", ir.IntType{Width: 8})
	arg := fn.AddParam("a", ir.IntType{Width: 8})
	entry := fn.NewBlock("entry")
	r := entry.Emit("r", ir.OpAdd, ir.IntType{Width: 8}, arg, ir.ConstInt{Typ: ir.IntType{Width: 8}, Val: 1})
	entry.Emit("", ir.OpRet, ir.VoidType{}, r)
	return mod, fn
}

func TestWriteDumpRunFunction(t *testing.T) {
	mod, fn := fixtureFunction()
	d, err := driver.New(mod, nil)
	if err != nil {
		t.Fatalf("driver.New: %v", err)
	}
	summaries := d.Analyze()
	_ = fn

	var buf bytes.Buffer
	if err := writeDump(&buf, mod, summaries); err != nil {
		t.Fatalf("writeDump: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "function @addone") {
		t.Errorf("dump should name the function: %q", out)
	}
	if !strings.Contains(out, "block %entry") {
		t.Errorf("dump should name the block: %q", out)
	}
	if !strings.Contains(out, "returned:") {
		t.Errorf("dump should show the returned value: %q", out)
	}
}

func TestWriteDumpAbortedFunction(t *testing.T) {
	mod, fn := fixtureFunction()
	summaries := []driver.FunctionSummary{
		{Function: fn, Err: errBoom},
	}
	var buf bytes.Buffer
	if err := writeDump(&buf, mod, summaries); err != nil {
		t.Fatalf("writeDump: %v", err)
	}
	if !strings.Contains(buf.String(), "aborted:") {
		t.Error("a summary with Err set should render as aborted")
	}
}

func TestWriteIndentedEmptyString(t *testing.T) {
	var buf bytes.Buffer
	writeIndented(&buf, "  ", "")
	if !strings.Contains(buf.String(), "(empty)") {
		t.Errorf("writeIndented(\"\") should render (empty), got %q", buf.String())
	}
}

func TestWriteIndentedMultiline(t *testing.T) {
	var buf bytes.Buffer
	writeIndented(&buf, ">> ", "a\nb\n")
	out := buf.String()
	if !strings.Contains(out, ">> a\n") || !strings.Contains(out, ">> b\n") {
		t.Errorf("writeIndented should prefix every line, got %q", out)
	}
}

type boomErr struct{}

func (boomErr) Error() string { return "boom" }

var errBoom = boomErr{}
