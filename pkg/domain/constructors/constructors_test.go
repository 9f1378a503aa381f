package constructors

import (
	"testing"

	"github.com/rainoftime/canal/pkg/config"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/aggregate"
	"github.com/rainoftime/canal/pkg/domain/float"
	"github.com/rainoftime/canal/pkg/domain/pointer"
	"github.com/rainoftime/canal/pkg/domain/product"
	"github.com/rainoftime/canal/pkg/ir"
)

func TestNewUsesDefaultConfigWhenNil(t *testing.T) {
	c := New(nil)
	if c.Cfg == nil {
		t.Fatal("New(nil) should fall back to config.Default()")
	}
}

func TestFromTypeIntAllDomainsProduct(t *testing.T) {
	c := New(config.Default())
	d, err := c.FromType(ir.IntType{Width: 8})
	if err != nil {
		t.Fatalf("FromType: %v", err)
	}
	p, ok := d.(*product.Product)
	if !ok {
		t.Fatalf("FromType(int) with all domains enabled = %T, want *product.Product", d)
	}
	if len(p.Components) != 3 {
		t.Errorf("len(Components) = %d, want 3 (Set, Interval, Bits)", len(p.Components))
	}
	if !d.IsBottom() {
		t.Error("FromType should return a bottom value")
	}
}

func TestFromTypeIntSingleDomainNoProduct(t *testing.T) {
	cfg := config.Default()
	cfg.EnabledIntegerDomains = config.DomainInterval
	c := New(cfg)
	d, err := c.FromType(ir.IntType{Width: 8})
	if err != nil {
		t.Fatalf("FromType: %v", err)
	}
	if _, ok := d.(*product.Product); ok {
		t.Error("a single enabled integer domain should not be wrapped in a Product")
	}
}

func TestFromTypeFloat(t *testing.T) {
	c := New(config.Default())
	d, err := c.FromType(ir.FloatType{Format: ir.Float64})
	if err != nil {
		t.Fatalf("FromType: %v", err)
	}
	if _, ok := d.(*float.Interval); !ok {
		t.Fatalf("FromType(float) = %T, want *float.Interval", d)
	}
}

func TestFromTypePointer(t *testing.T) {
	c := New(config.Default())
	d, err := c.FromType(ir.PointerType{Elem: ir.IntType{Width: 8}})
	if err != nil {
		t.Fatalf("FromType: %v", err)
	}
	if _, ok := d.(*pointer.Pointer); !ok {
		t.Fatalf("FromType(pointer) = %T, want *pointer.Pointer", d)
	}
}

func TestFromTypeArray(t *testing.T) {
	c := New(config.Default())
	d, err := c.FromType(ir.ArrayType{Len: 4, Elem: ir.IntType{Width: 8}})
	if err != nil {
		t.Fatalf("FromType: %v", err)
	}
	arr, ok := d.(*aggregate.FixedArray)
	if !ok {
		t.Fatalf("FromType(array) = %T, want *aggregate.FixedArray", d)
	}
	if len(arr.Elems) != 4 {
		t.Errorf("len(Elems) = %d, want 4", len(arr.Elems))
	}
}

func TestFromTypeStruct(t *testing.T) {
	c := New(config.Default())
	st := ir.StructType{Name: "pair", Fields: []ir.Type{ir.IntType{Width: 8}, ir.IntType{Width: 8}}}
	d, err := c.FromType(st)
	if err != nil {
		t.Fatalf("FromType: %v", err)
	}
	s, ok := d.(*aggregate.Struct)
	if !ok {
		t.Fatalf("FromType(struct) = %T, want *aggregate.Struct", d)
	}
	if len(s.Fields) != 2 {
		t.Errorf("len(Fields) = %d, want 2", len(s.Fields))
	}
}

func TestFromTypeVoidErrors(t *testing.T) {
	c := New(config.Default())
	if _, err := c.FromType(ir.VoidType{}); err == nil {
		t.Error("FromType(void) should error")
	}
}

func TestFromConstantInt(t *testing.T) {
	c := New(config.Default())
	d, err := c.FromConstant(ir.ConstInt{Typ: ir.IntType{Width: 8}, Val: 5}, 0, nil)
	if err != nil {
		t.Fatalf("FromConstant: %v", err)
	}
	if d.IsBottom() {
		t.Error("FromConstant(5) should not be bottom")
	}
}

func TestFromConstantUndefIsBottom(t *testing.T) {
	c := New(config.Default())
	d, err := c.FromConstant(ir.ConstUndef{Typ: ir.IntType{Width: 8}}, 0, nil)
	if err != nil {
		t.Fatalf("FromConstant: %v", err)
	}
	if !d.IsBottom() {
		t.Error("ConstUndef should map to bottom, not top")
	}
}

func TestFromConstantNull(t *testing.T) {
	c := New(config.Default())
	d, err := c.FromConstant(ir.ConstNull{Typ: ir.PointerType{Elem: ir.IntType{Width: 8}}}, 0, nil)
	if err != nil {
		t.Fatalf("FromConstant: %v", err)
	}
	p, ok := d.(*pointer.Pointer)
	if !ok {
		t.Fatalf("FromConstant(null) = %T, want *pointer.Pointer", d)
	}
	if p.IsBottom() {
		t.Error("null pointer should carry a constant target, not be bottom")
	}
}

func TestFromConstantFloat(t *testing.T) {
	c := New(config.Default())
	d, err := c.FromConstant(ir.ConstFloat{Typ: ir.FloatType{Format: ir.Float64}, Bits: 0}, 0, nil)
	if err != nil {
		t.Fatalf("FromConstant: %v", err)
	}
	if _, ok := d.(*float.Interval); !ok {
		t.Fatalf("FromConstant(float) = %T, want *float.Interval", d)
	}
}

func TestFromConstantExprWithoutResolverErrors(t *testing.T) {
	c := New(config.Default())
	expr := ir.ConstExpr{Typ: ir.PointerType{Elem: ir.IntType{Width: 8}}, Op: ir.ConstExprGEP}
	if _, err := c.FromConstant(expr, 0, nil); err == nil {
		t.Error("a ConstExpr with no OperandResolver should error")
	}
}

type fakeResolver struct{ value domain.Domain }

func (r fakeResolver) Resolve(v ir.Value) (domain.Domain, error) { return r.value, nil }

func TestFromConstantExprBitCast(t *testing.T) {
	c := New(config.Default())
	base := pointer.New(ir.IntType{Width: 8})
	_ = base.AddTarget(1, pointer.TagBlock, 1, nil, nil, nil)
	res := fakeResolver{value: base}
	expr := ir.ConstExpr{Typ: ir.IntType{Width: 32}, Op: ir.ConstExprBitCast, Base: ir.ConstNull{}}
	d, err := c.FromConstant(expr, 0, res)
	if err != nil {
		t.Fatalf("FromConstant: %v", err)
	}
	p := d.(*pointer.Pointer)
	if p.Elem != (ir.IntType{Width: 32}) {
		t.Errorf("bitcast result Elem = %v, want IntType{32}", p.Elem)
	}
}

func TestFromConstantDataSequentialBuildsStringTrie(t *testing.T) {
	c := New(config.Default())
	k := ir.ConstDataSequential{Typ: ir.ArrayType{Len: 2, Elem: ir.IntType{Width: 8}}, Bytes: []byte("hi")}
	d, err := c.FromConstant(k, 0, nil)
	if err != nil {
		t.Fatalf("FromConstant: %v", err)
	}
	if _, ok := d.(*aggregate.StringTrie); !ok {
		t.Fatalf("FromConstant(data-sequential i8) = %T, want *aggregate.StringTrie", d)
	}
}
