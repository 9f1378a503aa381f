package irjson

import (
	"strings"
	"testing"

	"github.com/rainoftime/canal/pkg/ir"
)

func TestParseTypeScalars(t *testing.T) {
	cases := map[string]ir.Type{
		"void": ir.VoidType{},
		"i1":   ir.IntType{Width: 1},
		"i32":  ir.IntType{Width: 32},
		"f32":  ir.FloatType{Format: ir.Float32},
		"f64":  ir.FloatType{Format: ir.Float64},
	}
	for s, want := range cases {
		got, err := parseType(s)
		if err != nil {
			t.Fatalf("parseType(%q): %v", s, err)
		}
		if !got.Equal(want) {
			t.Errorf("parseType(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestParseTypePointer(t *testing.T) {
	got, err := parseType("i32*")
	if err != nil {
		t.Fatalf("parseType: %v", err)
	}
	want := ir.PointerType{Elem: ir.IntType{Width: 32}}
	if !got.Equal(want) {
		t.Errorf("parseType(i32*) = %v, want %v", got, want)
	}
}

func TestParseTypePointerToPointer(t *testing.T) {
	got, err := parseType("i8**")
	if err != nil {
		t.Fatalf("parseType: %v", err)
	}
	want := ir.PointerType{Elem: ir.PointerType{Elem: ir.IntType{Width: 8}}}
	if !got.Equal(want) {
		t.Errorf("parseType(i8**) = %v, want %v", got, want)
	}
}

func TestParseTypeArray(t *testing.T) {
	got, err := parseType("[4 x i8]")
	if err != nil {
		t.Fatalf("parseType: %v", err)
	}
	want := ir.ArrayType{Len: 4, Elem: ir.IntType{Width: 8}}
	if !got.Equal(want) {
		t.Errorf("parseType([4 x i8]) = %v, want %v", got, want)
	}
}

func TestParseTypeVector(t *testing.T) {
	got, err := parseType("<4 x i8>")
	if err != nil {
		t.Fatalf("parseType: %v", err)
	}
	arr, ok := got.(ir.ArrayType)
	if !ok || !arr.IsVector {
		t.Fatalf("parseType(<4 x i8>) = %v, want a vector ArrayType", got)
	}
}

func TestParseTypeStructNested(t *testing.T) {
	got, err := parseType("{i8, [2 x i8], i8*}")
	if err != nil {
		t.Fatalf("parseType: %v", err)
	}
	st, ok := got.(ir.StructType)
	if !ok {
		t.Fatalf("parseType(struct) = %T, want ir.StructType", got)
	}
	if len(st.Fields) != 3 {
		t.Fatalf("len(Fields) = %d, want 3", len(st.Fields))
	}
}

func TestParseTypeUnrecognizedErrors(t *testing.T) {
	if _, err := parseType("bogus"); err == nil {
		t.Error("parseType(bogus) should error")
	}
	if _, err := parseType(""); err == nil {
		t.Error("parseType(empty) should error")
	}
}

func TestLoadSimpleFunction(t *testing.T) {
	src := `{
		"functions": [
			{
				"name": "addone",
				"ret": "i8",
				"params": [{"name": "a", "type": "i8"}],
				"blocks": [
					{
						"name": "entry",
						"instrs": [
							{"name": "r", "op": "add", "type": "i8", "operands": ["%a", {"kind":"int","type":"i8","value":1}]},
							{"op": "ret", "operands": ["%r"]}
						]
					}
				]
			}
		]
	}`
	mod, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fn := mod.FunctionByName("addone")
	if fn == nil {
		t.Fatal("expected function addone")
	}
	if len(fn.Blocks) != 1 {
		t.Fatalf("len(Blocks) = %d, want 1", len(fn.Blocks))
	}
	if len(fn.Blocks[0].Instrs) != 2 {
		t.Fatalf("len(Instrs) = %d, want 2", len(fn.Blocks[0].Instrs))
	}
}

func TestLoadGlobalWithInit(t *testing.T) {
	src := `{
		"globals": [
			{"name": "g", "type": "i32", "init": {"kind":"int","type":"i32","value":7}, "const": true}
		],
		"functions": []
	}`
	mod, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(mod.Globals) != 1 {
		t.Fatalf("len(Globals) = %d, want 1", len(mod.Globals))
	}
	if mod.Globals[0].Name != "g" {
		t.Errorf("global name = %q, want g", mod.Globals[0].Name)
	}
}

func TestLoadForwardCallReference(t *testing.T) {
	src := `{
		"functions": [
			{
				"name": "caller",
				"ret": "i8",
				"blocks": [
					{
						"name": "entry",
						"instrs": [
							{"name": "c", "op": "call", "type": "i8", "callee": "callee"},
							{"op": "ret", "operands": ["%c"]}
						]
					}
				]
			},
			{
				"name": "callee",
				"ret": "i8",
				"blocks": [
					{"name": "entry", "instrs": [{"op": "ret", "operands": [{"kind":"int","type":"i8","value":1}]}]}
				]
			}
		]
	}`
	mod, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	caller := mod.FunctionByName("caller")
	callInstr := caller.Blocks[0].Instrs[0]
	if callInstr.Callee == nil || callInstr.Callee.Name != "callee" {
		t.Error("call should resolve its forward-referenced callee")
	}
}

func TestLoadUnknownOpcodeErrors(t *testing.T) {
	src := `{"functions":[{"name":"f","ret":"void","blocks":[{"name":"entry","instrs":[{"op":"bogus"}]}]}]}`
	if _, err := Load(strings.NewReader(src)); err == nil {
		t.Error("Load should error on an unknown opcode")
	}
}

func TestLoadUnknownReferenceErrors(t *testing.T) {
	src := `{"functions":[{"name":"f","ret":"void","blocks":[{"name":"entry","instrs":[{"op":"ret","operands":["%nope"]}]}]}]}`
	if _, err := Load(strings.NewReader(src)); err == nil {
		t.Error("Load should error on a reference to an undefined name")
	}
}

func TestLoadExternalFunctionHasNoBody(t *testing.T) {
	src := `{"functions":[{"name":"ext","ret":"i8","external":true}]}`
	mod, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fn := mod.FunctionByName("ext")
	if fn == nil {
		t.Fatal("expected function ext")
	}
	if !fn.External {
		t.Error("ext should be marked External")
	}
	if len(fn.Blocks) != 0 {
		t.Errorf("external function should have no blocks, got %d", len(fn.Blocks))
	}
}

func TestLoadPhiIncoming(t *testing.T) {
	src := `{
		"functions": [
			{
				"name": "f",
				"ret": "i8",
				"blocks": [
					{"name": "entry", "instrs": [
						{"op": "condbr", "operands": [{"kind":"int","type":"i1","value":1}], "succs": ["a", "b"]}
					]},
					{"name": "a", "instrs": [{"op": "br", "succs": ["j"]}]},
					{"name": "b", "instrs": [{"op": "br", "succs": ["j"]}]},
					{"name": "j", "instrs": [
						{"name": "p", "op": "phi", "type": "i8", "incoming": [
							{"block": "a", "value": {"kind":"int","type":"i8","value":1}},
							{"block": "b", "value": {"kind":"int","type":"i8","value":2}}
						]},
						{"op": "ret", "operands": ["%p"]}
					]}
				]
			}
		]
	}`
	mod, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fn := mod.FunctionByName("f")
	join := fn.Blocks[3]
	phi := join.Instrs[0]
	if len(phi.Incoming) != 2 {
		t.Fatalf("len(Incoming) = %d, want 2", len(phi.Incoming))
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	src := `{"bogusField": true, "functions": []}`
	if _, err := Load(strings.NewReader(src)); err == nil {
		t.Error("Load should reject unknown top-level fields")
	}
}

func TestBuildConstantKinds(t *testing.T) {
	i, err := buildConstant(&constSpec{Kind: "int", Type: "i8", Value: 5})
	if err != nil {
		t.Fatalf("buildConstant(int): %v", err)
	}
	if ci, ok := i.(ir.ConstInt); !ok || ci.Val != 5 {
		t.Errorf("buildConstant(int) = %#v, want ConstInt{Val:5}", i)
	}

	u, err := buildConstant(&constSpec{Kind: "undef", Type: "i8"})
	if err != nil {
		t.Fatalf("buildConstant(undef): %v", err)
	}
	if _, ok := u.(ir.ConstUndef); !ok {
		t.Errorf("buildConstant(undef) = %T, want ConstUndef", u)
	}

	n, err := buildConstant(&constSpec{Kind: "null", Type: "i8*"})
	if err != nil {
		t.Fatalf("buildConstant(null): %v", err)
	}
	if _, ok := n.(ir.ConstNull); !ok {
		t.Errorf("buildConstant(null) = %T, want ConstNull", n)
	}

	if _, err := buildConstant(&constSpec{Kind: "bogus", Type: "i8"}); err == nil {
		t.Error("buildConstant should error on an unknown kind")
	}
}
