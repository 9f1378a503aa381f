// Package ir is the read-only adapter the analysis core consumes: a
// compiled module of functions, basic blocks, instructions, typed
// pointers, and aggregates. Nothing in this package ever mutates a
// Domain or a State — it only answers questions (enumerate, decode,
// query type) for pkg/interp and pkg/driver to act on.
package ir

import (
	"fmt"
	"strings"
)

// TypeKind distinguishes the handful of type shapes the core needs to
// build a Domain for.
type TypeKind int

const (
	KindVoid TypeKind = iota
	KindInt
	KindFloat
	KindPointer
	KindArray
	KindVector
	KindStruct
	KindFunc
)

func (k TypeKind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindVector:
		return "vector"
	case KindStruct:
		return "struct"
	case KindFunc:
		return "func"
	default:
		return "unknown"
	}
}

// Type is the read-only type-query surface the Constructors factory
// and the interpreter use. Two Types describing the same shape are
// not required to be the same Go value, so callers compare with
// Equal, not ==.
type Type interface {
	Kind() TypeKind
	String() string
	Equal(other Type) bool
}

// VoidType is the type of a function with no return value.
type VoidType struct{}

func (VoidType) Kind() TypeKind    { return KindVoid }
func (VoidType) String() string    { return "void" }
func (VoidType) Equal(o Type) bool { _, ok := o.(VoidType); return ok }

// IntType is a machine integer of a fixed bit width.
type IntType struct {
	Width int
}

func (t IntType) Kind() TypeKind { return KindInt }
func (t IntType) String() string { return fmt.Sprintf("i%d", t.Width) }
func (t IntType) Equal(o Type) bool {
	other, ok := o.(IntType)
	return ok && other.Width == t.Width
}

// FloatFormat names the IEEE binary interchange format of a FloatType.
type FloatFormat int

const (
	Float32 FloatFormat = iota
	Float64
)

func (f FloatFormat) String() string {
	if f == Float32 {
		return "f32"
	}
	return "f64"
}

// FloatType is an IEEE floating-point type.
type FloatType struct {
	Format FloatFormat
}

func (t FloatType) Kind() TypeKind { return KindFloat }
func (t FloatType) String() string { return t.Format.String() }
func (t FloatType) Equal(o Type) bool {
	other, ok := o.(FloatType)
	return ok && other.Format == t.Format
}

// PointerType is a typed pointer to Elem. Pointers of different
// pointee types are distinct values per spec.
type PointerType struct {
	Elem Type
}

func (t PointerType) Kind() TypeKind { return KindPointer }
func (t PointerType) String() string { return t.Elem.String() + "*" }
func (t PointerType) Equal(o Type) bool {
	other, ok := o.(PointerType)
	return ok && other.Elem.Equal(t.Elem)
}

// ArrayType is a fixed-size aggregate `[Len x Elem]`. Vector types
// `<Len x Elem>` share this shape with IsVector set, since the
// Constructors factory treats both as a fixed-size array of Domains.
type ArrayType struct {
	Len      uint64
	Elem     Type
	IsVector bool
}

func (t ArrayType) Kind() TypeKind {
	if t.IsVector {
		return KindVector
	}
	return KindArray
}

func (t ArrayType) String() string {
	if t.IsVector {
		return fmt.Sprintf("<%d x %s>", t.Len, t.Elem)
	}
	return fmt.Sprintf("[%d x %s]", t.Len, t.Elem)
}

func (t ArrayType) Equal(o Type) bool {
	other, ok := o.(ArrayType)
	return ok && other.Len == t.Len && other.IsVector == t.IsVector && other.Elem.Equal(t.Elem)
}

// StructType is an ordered record of fields.
type StructType struct {
	Name   string
	Fields []Type
}

func (t StructType) Kind() TypeKind { return KindStruct }
func (t StructType) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.String()
	}
	if t.Name != "" {
		return fmt.Sprintf("%%%s{%s}", t.Name, strings.Join(parts, ", "))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
func (t StructType) Equal(o Type) bool {
	other, ok := o.(StructType)
	if !ok || len(other.Fields) != len(t.Fields) {
		return false
	}
	for i := range t.Fields {
		if !t.Fields[i].Equal(other.Fields[i]) {
			return false
		}
	}
	return true
}

// FuncType describes a function's signature; used for the pointer
// type of Function values.
type FuncType struct {
	Ret    Type
	Params []Type
}

func (t FuncType) Kind() TypeKind { return KindFunc }
func (t FuncType) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", t.Ret, strings.Join(parts, ", "))
}
func (t FuncType) Equal(o Type) bool {
	other, ok := o.(FuncType)
	if !ok || len(other.Params) != len(t.Params) || !other.Ret.Equal(t.Ret) {
		return false
	}
	for i := range t.Params {
		if !t.Params[i].Equal(other.Params[i]) {
			return false
		}
	}
	return true
}
