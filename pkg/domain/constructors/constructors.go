// Package constructors implements the single factory of §4.1 that
// builds a bottom (or, for constants, precise) Domain for any IR
// type. Grounded on original_source/lib/Constructors.cpp's single
// create() dispatch, and on the teacher's inst.Catalog pattern of a
// struct carrying configuration rather than reading process globals.
package constructors

import (
	"fmt"
	"math"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/config"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/aggregate"
	"github.com/rainoftime/canal/pkg/domain/float"
	"github.com/rainoftime/canal/pkg/domain/integer"
	"github.com/rainoftime/canal/pkg/domain/pointer"
	"github.com/rainoftime/canal/pkg/domain/product"
	"github.com/rainoftime/canal/pkg/ir"
)

// Constructors builds default and constant Domains for a fixed
// *config.Config, so construction behavior (which integer
// representations are enabled, the Set threshold) is test-injectable
// rather than a process global.
type Constructors struct {
	Cfg *config.Config
}

// New returns a Constructors over cfg, or config.Default() if cfg is
// nil.
func New(cfg *config.Config) *Constructors {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Constructors{Cfg: cfg}
}

// OperandResolver supplies the Domain bound to an IR Value reference.
// It is needed only to evaluate constant expressions (getelementptr,
// bitcast) whose base operand is itself a Value rather than a
// literal; pkg/state's State implements it.
type OperandResolver interface {
	Resolve(v ir.Value) (domain.Domain, error)
}

func (c *Constructors) integerContainer(w int) domain.Domain {
	var comps []domain.Domain
	if c.Cfg.EnabledIntegerDomains&config.DomainSet != 0 {
		comps = append(comps, integer.Bottom(w, c.Cfg.SetThreshold))
	}
	if c.Cfg.EnabledIntegerDomains&config.DomainInterval != 0 {
		comps = append(comps, integer.IntervalBottom(w))
	}
	if c.Cfg.EnabledIntegerDomains&config.DomainBits != 0 {
		comps = append(comps, integer.BitsBottom(w))
	}
	if len(comps) == 0 {
		comps = append(comps, integer.IntervalBottom(w))
	}
	if len(comps) == 1 {
		return comps[0]
	}
	return product.New(ir.IntType{Width: w}, w, comps...)
}

func (c *Constructors) integerSingleton(w int, v uint64) domain.Domain {
	var comps []domain.Domain
	if c.Cfg.EnabledIntegerDomains&config.DomainSet != 0 {
		comps = append(comps, integer.Singleton(w, v, c.Cfg.SetThreshold))
	}
	if c.Cfg.EnabledIntegerDomains&config.DomainInterval != 0 {
		comps = append(comps, integer.IntervalConst(w, v))
	}
	if c.Cfg.EnabledIntegerDomains&config.DomainBits != 0 {
		comps = append(comps, integer.BitsConst(w, v))
	}
	if len(comps) == 0 {
		comps = append(comps, integer.IntervalConst(w, v))
	}
	if len(comps) == 1 {
		return comps[0]
	}
	return product.New(ir.IntType{Width: w}, w, comps...)
}

// FromType builds the bottom Domain matching typ: an integer
// container for integer types, a float interval for floating types, an
// empty pointer domain for pointer types, a fixed-size array or
// struct of element/field defaults for aggregates.
func (c *Constructors) FromType(typ ir.Type) (domain.Domain, error) {
	switch t := typ.(type) {
	case ir.IntType:
		return c.integerContainer(t.Width), nil
	case ir.FloatType:
		return float.FloatBottom(t.Format), nil
	case ir.PointerType:
		return pointer.New(t.Elem), nil
	case ir.ArrayType:
		def, err := c.FromType(t.Elem)
		if err != nil {
			return nil, err
		}
		return aggregate.NewFixedArray(t.Elem, t.Len, def), nil
	case ir.StructType:
		fields := make([]domain.Domain, len(t.Fields))
		for i, ft := range t.Fields {
			fd, err := c.FromType(ft)
			if err != nil {
				return nil, err
			}
			fields[i] = fd
		}
		return aggregate.NewStruct(t, fields), nil
	case ir.VoidType:
		return nil, canalerr.New(canalerr.UnsupportedType, "create", "cannot create a value of type void")
	default:
		return nil, canalerr.New(canalerr.UnsupportedType, "create", fmt.Sprintf("unsupported type %s", typ))
	}
}

// FromConstant builds a precise Domain for an IR constant. place
// tags any pointer target the constant creates; res resolves operand
// references inside constant expressions (nil is fine unless v is a
// ConstExpr).
func (c *Constructors) FromConstant(v ir.Constant, place ir.ValueID, res OperandResolver) (domain.Domain, error) {
	switch k := v.(type) {
	case ir.ConstUndef:
		return c.FromType(k.Typ)
	case ir.ConstInt:
		return c.integerSingleton(k.Typ.Width, k.Val), nil
	case ir.ConstFloat:
		if k.NaN {
			f := float.FloatBottom(k.Typ.Format)
			f.MayBeNaN = true
			return f, nil
		}
		bits := float64FromBits(k)
		return float.Const(k.Typ.Format, bits), nil
	case ir.ConstNull:
		p := pointer.New(k.Typ.Elem)
		zero := c.integerSingleton(8, 0)
		if err := p.AddTarget(place, pointer.TagConstant, 0, zero, nil, nil); err != nil {
			return nil, err
		}
		return p, nil
	case ir.ConstAggregate:
		return c.fromConstAggregate(k, place, res)
	case ir.ConstDataSequential:
		return c.fromConstDataSequential(k)
	case ir.ConstExpr:
		return c.fromConstExpr(k, place, res)
	default:
		return nil, canalerr.New(canalerr.UnsupportedType, "create-constant", "unrecognized constant kind")
	}
}

func float64FromBits(k ir.ConstFloat) float64 {
	if k.Inf {
		if k.Neg {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	if k.Typ.Format == ir.Float32 {
		return float64(math.Float32frombits(uint32(k.Bits)))
	}
	return math.Float64frombits(k.Bits)
}

func (c *Constructors) fromConstAggregate(k ir.ConstAggregate, place ir.ValueID, res OperandResolver) (domain.Domain, error) {
	switch t := k.Typ.(type) {
	case ir.StructType:
		fields := make([]domain.Domain, len(k.Elems))
		for i, e := range k.Elems {
			fd, err := c.FromConstant(e, place, res)
			if err != nil {
				return nil, err
			}
			fields[i] = fd
		}
		return aggregate.NewStruct(t, fields), nil
	case ir.ArrayType:
		def, err := c.FromType(t.Elem)
		if err != nil {
			return nil, err
		}
		arr := aggregate.NewFixedArray(t.Elem, t.Len, def)
		for i, e := range k.Elems {
			fd, err := c.FromConstant(e, place, res)
			if err != nil {
				return nil, err
			}
			arr.Elems[i] = fd
		}
		return arr, nil
	default:
		return nil, canalerr.New(canalerr.UnsupportedType, "create-constant", "aggregate constant has neither array nor struct type")
	}
}

func (c *Constructors) fromConstDataSequential(k ir.ConstDataSequential) (domain.Domain, error) {
	it, ok := k.Typ.Elem.(ir.IntType)
	if !ok || it.Width != 8 {
		return c.FromType(k.Typ)
	}
	return aggregate.StringTrieConst(k.Typ.Elem, string(k.Bytes)), nil
}

func (c *Constructors) fromConstExpr(k ir.ConstExpr, place ir.ValueID, res OperandResolver) (domain.Domain, error) {
	if res == nil {
		return nil, canalerr.New(canalerr.NotImplemented, "create-constant", "constant expression requires a state to resolve operands")
	}
	base, err := res.Resolve(k.Base)
	if err != nil {
		return nil, err
	}
	basePtr, ok := base.(*pointer.Pointer)
	if !ok {
		return nil, canalerr.New(canalerr.UnsupportedType, "create-constant", "constant expression base is not a pointer")
	}
	switch k.Op {
	case ir.ConstExprGEP:
		offsets := make([]domain.Domain, len(k.Indices))
		for i, idx := range k.Indices {
			od, err := res.Resolve(idx)
			if err != nil {
				return nil, err
			}
			offsets[i] = od
		}
		return basePtr.GetElementPtr(offsets, k.Typ)
	case ir.ConstExprBitCast:
		return basePtr.BitCast(k.Typ), nil
	default:
		return nil, canalerr.New(canalerr.NotImplemented, "create-constant", "unsupported constant expression opcode")
	}
}
