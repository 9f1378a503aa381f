// Package irjson is the minimal textual module format the REPL's
// "file" command reads. Module loading is explicitly a thin external
// collaborator, not part of the analysis core (§6): pkg/ir only
// exposes a Builder, "a real loader would populate a Module this way"
// (see pkg/ir/builder.go). This package is that loader, aimed at
// hand-written or generated test modules rather than a real compiler
// front end.
//
// Types are written exactly as ir.Type.String() renders them (i32,
// f64, i32*, [4 x i32], {i32, i32}), so a dumped module and a
// hand-written fixture share one grammar. A scalar constant is a JSON
// object {"kind":"int"|"float"|"null"|"undef","type":"...","value":...};
// any other operand is a string reference: "%name" to a parameter or
// instruction result in the current function, "@name" to a global.
// Aggregate constants, constant expressions, and packed data literals
// are out of scope for this format — a module needing those is
// expected to arrive pre-built through the Builder API.
package irjson

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rainoftime/canal/pkg/ir"
)

type constSpec struct {
	Kind  string  `json:"kind"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// operand is either a name reference (a JSON string) or an inline
// scalar constant (a JSON object).
type operand struct {
	ref string
	c   *constSpec
}

func (o *operand) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.ref = s
		return nil
	}
	var c constSpec
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("irjson: operand must be a name string or a constant object: %w", err)
	}
	o.c = &c
	return nil
}

type incomingSpec struct {
	Block string  `json:"block"`
	Value operand `json:"value"`
}

type instrSpec struct {
	Name     string         `json:"name"`
	Op       string         `json:"op"`
	Type     string         `json:"type"`
	Operands []operand      `json:"operands"`
	Pred     string         `json:"pred"`
	Indices  []operand      `json:"indices"`
	Incoming []incomingSpec `json:"incoming"`
	Callee   string         `json:"callee"`
	Succs    []string       `json:"succs"`
}

type blockSpec struct {
	Name   string      `json:"name"`
	Instrs []instrSpec `json:"instrs"`
}

type paramSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type funcSpec struct {
	Name     string      `json:"name"`
	Ret      string      `json:"ret"`
	External bool        `json:"external"`
	Params   []paramSpec `json:"params"`
	Blocks   []blockSpec `json:"blocks"`
}

type globalSpec struct {
	Name  string     `json:"name"`
	Type  string     `json:"type"`
	Init  *constSpec `json:"init"`
	Const bool       `json:"const"`
}

type moduleSpec struct {
	Globals   []globalSpec `json:"globals"`
	Functions []funcSpec   `json:"functions"`
}

// Load reads a module description from r and builds it through
// pkg/ir's Builder surface.
func Load(r io.Reader) (*ir.Module, error) {
	var spec moduleSpec
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("irjson: decode: %w", err)
	}

	mod := ir.NewModule()
	globalScope := map[string]ir.Value{}

	for _, gs := range spec.Globals {
		elem, err := parseType(gs.Type)
		if err != nil {
			return nil, fmt.Errorf("irjson: global %s: %w", gs.Name, err)
		}
		var init ir.Value
		if gs.Init != nil {
			c, err := buildConstant(gs.Init)
			if err != nil {
				return nil, fmt.Errorf("irjson: global %s init: %w", gs.Name, err)
			}
			init = c
		}
		g := mod.NewGlobal(gs.Name, elem, init, gs.Const)
		globalScope["@"+gs.Name] = g
	}

	// Functions are declared up front (signature only) so a call that
	// textually precedes its callee still resolves.
	fns := make(map[string]*ir.Function, len(spec.Functions))
	for _, fs := range spec.Functions {
		ret, err := parseType(fs.Ret)
		if err != nil {
			return nil, fmt.Errorf("irjson: function %s: %w", fs.Name, err)
		}
		f := mod.NewFunction(fs.Name, ret)
		f.External = fs.External
		for _, ps := range fs.Params {
			pt, err := parseType(ps.Type)
			if err != nil {
				return nil, fmt.Errorf("irjson: function %s param %s: %w", fs.Name, ps.Name, err)
			}
			f.AddParam(ps.Name, pt)
		}
		fns[fs.Name] = f
	}

	for _, fs := range spec.Functions {
		if fs.External {
			continue
		}
		if err := buildFunction(fns[fs.Name], fs, fns, globalScope); err != nil {
			return nil, fmt.Errorf("irjson: function %s: %w", fs.Name, err)
		}
	}
	return mod, nil
}

// buildFunction populates f's blocks and instructions. Every block is
// created before any instruction is emitted, so a forward branch to a
// not-yet-built block still resolves.
func buildFunction(f *ir.Function, fs funcSpec, fns map[string]*ir.Function, globalScope map[string]ir.Value) error {
	locals := map[string]ir.Value{}
	for k, v := range globalScope {
		locals[k] = v
	}
	for _, p := range f.Params {
		locals["%"+p.Name] = p
	}

	blocks := make(map[string]*ir.BasicBlock, len(fs.Blocks))
	for _, bs := range fs.Blocks {
		blocks[bs.Name] = f.NewBlock(bs.Name)
	}

	for _, bs := range fs.Blocks {
		blk := blocks[bs.Name]
		for _, is := range bs.Instrs {
			instr, err := buildInstr(blk, is, blocks, fns, locals)
			if err != nil {
				return fmt.Errorf("block %s: %w", bs.Name, err)
			}
			if is.Name != "" {
				locals["%"+is.Name] = instr
			}
			for _, succName := range is.Succs {
				succ, ok := blocks[succName]
				if !ok {
					return fmt.Errorf("block %s: unknown successor %s", bs.Name, succName)
				}
				blk.AddSucc(succ)
				instr.Succs = append(instr.Succs, succ)
			}
		}
	}
	return nil
}

func buildInstr(blk *ir.BasicBlock, is instrSpec, blocks map[string]*ir.BasicBlock, fns map[string]*ir.Function, locals map[string]ir.Value) (*ir.Instruction, error) {
	op, ok := opcodeByName[is.Op]
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q", is.Op)
	}
	var typ ir.Type = ir.VoidType{}
	if is.Type != "" {
		t, err := parseType(is.Type)
		if err != nil {
			return nil, err
		}
		typ = t
	}

	operands := make([]ir.Value, len(is.Operands))
	for i, o := range is.Operands {
		v, err := resolve(o, locals)
		if err != nil {
			return nil, fmt.Errorf("operand %d: %w", i, err)
		}
		operands[i] = v
	}
	instr := blk.Emit(is.Name, op, typ, operands...)

	if is.Pred != "" {
		p, ok := predicateByName[is.Pred]
		if !ok {
			return nil, fmt.Errorf("unknown predicate %q", is.Pred)
		}
		instr.Pred = p
	}

	for i, o := range is.Indices {
		v, err := resolve(o, locals)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		instr.Indices = append(instr.Indices, v)
	}

	for _, inc := range is.Incoming {
		predBlk, ok := blocks[inc.Block]
		if !ok {
			return nil, fmt.Errorf("phi: unknown block %q", inc.Block)
		}
		v, err := resolve(inc.Value, locals)
		if err != nil {
			return nil, fmt.Errorf("phi value: %w", err)
		}
		instr.Incoming = append(instr.Incoming, ir.PhiIncoming{Block: predBlk, Value: v})
	}

	if op == ir.OpCall {
		if is.Callee == "" {
			instr.CalleeName = "indirect"
		} else {
			callee, ok := fns[is.Callee]
			if !ok {
				return nil, fmt.Errorf("call: unknown function %q", is.Callee)
			}
			instr.Callee = callee
			instr.CalleeName = is.Callee
		}
	}

	return instr, nil
}

func resolve(o operand, locals map[string]ir.Value) (ir.Value, error) {
	if o.c != nil {
		return buildConstant(o.c)
	}
	v, ok := locals[o.ref]
	if !ok {
		return nil, fmt.Errorf("unknown reference %q", o.ref)
	}
	return v, nil
}

func buildConstant(c *constSpec) (ir.Constant, error) {
	typ, err := parseType(c.Type)
	if err != nil {
		return nil, err
	}
	switch c.Kind {
	case "int":
		it, ok := typ.(ir.IntType)
		if !ok {
			return nil, fmt.Errorf("int constant needs an integer type, got %s", c.Type)
		}
		return ir.ConstInt{Typ: it, Val: uint64(int64(c.Value))}, nil
	case "float":
		ft, ok := typ.(ir.FloatType)
		if !ok {
			return nil, fmt.Errorf("float constant needs a float type, got %s", c.Type)
		}
		var bits uint64
		if ft.Format == ir.Float32 {
			bits = uint64(math.Float32bits(float32(c.Value)))
		} else {
			bits = math.Float64bits(c.Value)
		}
		return ir.ConstFloat{Typ: ft, Bits: bits}, nil
	case "null":
		pt, ok := typ.(ir.PointerType)
		if !ok {
			return nil, fmt.Errorf("null constant needs a pointer type, got %s", c.Type)
		}
		return ir.ConstNull{Typ: pt}, nil
	case "undef":
		return ir.ConstUndef{Typ: typ}, nil
	default:
		return nil, fmt.Errorf("unknown constant kind %q", c.Kind)
	}
}

var opcodeByName = buildOpcodeIndex()

func buildOpcodeIndex() map[string]ir.Opcode {
	idx := map[string]ir.Opcode{}
	for op := ir.Opcode(1); op < ir.OpcodeCount; op++ {
		idx[op.String()] = op
	}
	return idx
}

var predicateByName = buildPredicateIndex()

func buildPredicateIndex() map[string]ir.Predicate {
	idx := map[string]ir.Predicate{}
	for p := ir.PredEQ; p <= ir.PredULEF; p++ {
		idx[p.String()] = p
	}
	return idx
}

// parseType parses exactly the grammar ir.Type.String() produces:
// void, iN, f32, f64, T*, [N x T], <N x T>, {T, T, ...}. Named
// structs are out of scope for this format.
func parseType(s string) (ir.Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty type")
	}
	stars := 0
	for len(s) > 0 && s[len(s)-1] == '*' {
		stars++
		s = s[:len(s)-1]
	}
	base, err := parseBaseType(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	for i := 0; i < stars; i++ {
		base = ir.PointerType{Elem: base}
	}
	return base, nil
}

func parseBaseType(s string) (ir.Type, error) {
	switch {
	case s == "void":
		return ir.VoidType{}, nil
	case s == "f32":
		return ir.FloatType{Format: ir.Float32}, nil
	case s == "f64":
		return ir.FloatType{Format: ir.Float64}, nil
	case strings.HasPrefix(s, "i") && len(s) > 1:
		w, err := strconv.Atoi(s[1:])
		if err != nil {
			return nil, fmt.Errorf("bad integer type %q", s)
		}
		return ir.IntType{Width: w}, nil
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return parseArrayLike(s[1:len(s)-1], false)
	case strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">"):
		return parseArrayLike(s[1:len(s)-1], true)
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		fields, err := splitTopLevel(s[1:len(s)-1])
		if err != nil {
			return nil, err
		}
		types := make([]ir.Type, len(fields))
		for i, f := range fields {
			t, err := parseType(f)
			if err != nil {
				return nil, err
			}
			types[i] = t
		}
		return ir.StructType{Fields: types}, nil
	}
	return nil, fmt.Errorf("unrecognized type %q", s)
}

func parseArrayLike(inner string, vector bool) (ir.Type, error) {
	parts := strings.SplitN(inner, " x ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("bad array/vector type %q", inner)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad array/vector length %q", parts[0])
	}
	elem, err := parseType(parts[1])
	if err != nil {
		return nil, err
	}
	return ir.ArrayType{Len: n, Elem: elem, IsVector: vector}, nil
}

// splitTopLevel splits s on commas that are not nested inside
// brackets/braces, so struct fields that are themselves arrays or
// structs split correctly.
func splitTopLevel(s string) ([]string, error) {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '[', '{', '<':
			depth++
		case ']', '}', '>':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced brackets in %q", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets in %q", s)
	}
	parts = append(parts, s[start:])
	return parts, nil
}
