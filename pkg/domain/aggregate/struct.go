package aggregate

import (
	"fmt"
	"strings"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/ir"
)

// Struct is an ordered vector of field Domains; every transfer
// dispatches field-wise.
type Struct struct {
	domain.Base
	Fields []domain.Domain
}

func NewStruct(typ ir.StructType, fields []domain.Domain) *Struct {
	s := &Struct{Fields: fields}
	s.Typ = typ
	return s
}

func (s *Struct) IsBottom() bool {
	for _, f := range s.Fields {
		if !f.IsBottom() {
			return false
		}
	}
	return len(s.Fields) > 0
}

func (s *Struct) IsTop() bool {
	for _, f := range s.Fields {
		if !f.IsTop() {
			return false
		}
	}
	return len(s.Fields) > 0
}

func (s *Struct) SetBottom() {
	for _, f := range s.Fields {
		f.SetBottom()
	}
}

func (s *Struct) SetTop() {
	for _, f := range s.Fields {
		f.SetTop()
	}
}

func (s *Struct) Clone() domain.Domain {
	cp := &Struct{Base: s.Base, Fields: make([]domain.Domain, len(s.Fields))}
	for i, f := range s.Fields {
		cp.Fields[i] = f.Clone()
	}
	return cp
}

func (s *Struct) Equal(other domain.Domain) bool {
	o, ok := other.(*Struct)
	if !ok || len(o.Fields) != len(s.Fields) {
		return false
	}
	for i, f := range s.Fields {
		if !f.Equal(o.Fields[i]) {
			return false
		}
	}
	return true
}

func (s *Struct) Accuracy() float64 {
	if len(s.Fields) == 0 {
		return 1
	}
	sum := 0.0
	for _, f := range s.Fields {
		sum += f.Accuracy()
	}
	return sum / float64(len(s.Fields))
}

func (s *Struct) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("struct[%d]\n", len(s.Fields)))
	for i, f := range s.Fields {
		sb.WriteString(fmt.Sprintf("  .%d:\n", i))
		for _, line := range strings.Split(strings.TrimRight(f.String(), "\n"), "\n") {
			sb.WriteString("    ")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func asStruct(d domain.Domain, op string) (*Struct, error) {
	st, ok := d.(*Struct)
	if !ok {
		return nil, canalerr.New(canalerr.UnsupportedType, op, "operand is not a struct")
	}
	return st, nil
}

func (s *Struct) Join(a, b domain.Domain) error { return s.fieldWise(a, b, "join", domain.Domain.Join) }
func (s *Struct) Meet(a, b domain.Domain) error { return s.fieldWise(a, b, "meet", domain.Domain.Meet) }

func (s *Struct) fieldWise(a, b domain.Domain, op string, f func(domain.Domain, domain.Domain, domain.Domain) error) error {
	as, err := asStruct(a, op)
	if err != nil {
		return err
	}
	bs, err := asStruct(b, op)
	if err != nil {
		return err
	}
	if len(as.Fields) != len(s.Fields) || len(bs.Fields) != len(s.Fields) {
		return canalerr.New(canalerr.UnsupportedType, op, "struct field count mismatch")
	}
	for i := range s.Fields {
		if err := f(s.Fields[i], as.Fields[i], bs.Fields[i]); err != nil {
			return err
		}
	}
	return nil
}

// Field returns a borrow of field i. Out-of-bounds access is a fatal
// precondition violation: field indices in well-typed IR are always
// in range.
func (s *Struct) Field(i int) domain.Domain {
	canalerr.Assertf(i >= 0 && i < len(s.Fields), "Struct.Field", "field index out of bounds")
	return s.Fields[i]
}

func (s *Struct) SetField(i int, value domain.Domain) {
	canalerr.Assertf(i >= 0 && i < len(s.Fields), "Struct.SetField", "field index out of bounds")
	s.Fields[i] = value
}

func (s *Struct) SetZero(place ir.ValueID) error {
	for _, f := range s.Fields {
		if err := f.SetZero(place); err != nil {
			return err
		}
	}
	return nil
}
