package state

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/constructors"
	"github.com/rainoftime/canal/pkg/domain/pointer"
	"github.com/rainoftime/canal/pkg/ir"
)

// State is the triple of §3: live local variables, function-local
// memory blocks, global memory blocks, and the function's (possibly
// still empty) returned value.
type State struct {
	Cons     *constructors.Constructors
	Vars     map[ir.ValueID]domain.Domain
	Blocks   map[ir.ValueID]*Block
	Globals  map[ir.ValueID]*Block
	Returned domain.Domain
}

// New returns an empty state over the constructors cons uses to
// resolve constant-expression operands.
func New(cons *constructors.Constructors) *State {
	return &State{
		Cons:    cons,
		Vars:    map[ir.ValueID]domain.Domain{},
		Blocks:  map[ir.ValueID]*Block{},
		Globals: map[ir.ValueID]*Block{},
	}
}

func (s *State) Clone() *State {
	cp := New(s.Cons)
	for k, v := range s.Vars {
		cp.Vars[k] = v.Clone()
	}
	for k, b := range s.Blocks {
		cp.Blocks[k] = b.Clone()
	}
	for k, b := range s.Globals {
		cp.Globals[k] = b.Clone()
	}
	if s.Returned != nil {
		cp.Returned = s.Returned.Clone()
	}
	return cp
}

func (s *State) Equal(o *State) bool {
	if len(s.Vars) != len(o.Vars) || len(s.Blocks) != len(o.Blocks) || len(s.Globals) != len(o.Globals) {
		return false
	}
	for k, v := range s.Vars {
		ov, ok := o.Vars[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	for k, b := range s.Blocks {
		ob, ok := o.Blocks[k]
		if !ok || !b.Equal(ob) {
			return false
		}
	}
	for k, b := range s.Globals {
		ob, ok := o.Globals[k]
		if !ok || !b.Equal(ob) {
			return false
		}
	}
	if (s.Returned == nil) != (o.Returned == nil) {
		return false
	}
	return s.Returned == nil || s.Returned.Equal(o.Returned)
}

// JoinFrom folds other into s in place: the join of two predecessor
// output states, or of a block's recorded input with a newly arrived
// predecessor output, per §4.10 step 2. A key present in only one
// side passes through unchanged — it corresponds to a variable not
// yet live on the other path.
func (s *State) JoinFrom(other *State) error {
	for k, v := range other.Vars {
		if cur, ok := s.Vars[k]; ok {
			joined := cur.Clone()
			if err := joined.Join(cur, v); err != nil {
				return err
			}
			s.Vars[k] = joined
		} else {
			s.Vars[k] = v.Clone()
		}
	}
	for k, b := range other.Blocks {
		if cur, ok := s.Blocks[k]; ok {
			if err := cur.Join(b); err != nil {
				return err
			}
		} else {
			s.Blocks[k] = b.Clone()
		}
	}
	for k, b := range other.Globals {
		if cur, ok := s.Globals[k]; ok {
			if err := cur.Join(b); err != nil {
				return err
			}
		} else {
			s.Globals[k] = b.Clone()
		}
	}
	if other.Returned != nil {
		if s.Returned == nil {
			s.Returned = other.Returned.Clone()
		} else {
			joined := s.Returned.Clone()
			if err := joined.Join(s.Returned, other.Returned); err != nil {
				return err
			}
			s.Returned = joined
		}
	}
	return nil
}

// FindBlock implements pointer.BlockStore.
func (s *State) FindBlock(referent ir.ValueID) (pointer.Block, bool) {
	if blk, ok := s.Blocks[referent]; ok {
		return blk, true
	}
	if blk, ok := s.Globals[referent]; ok {
		return blk, true
	}
	return nil, false
}

// IsGlobalBlock implements pointer.BlockStore.
func (s *State) IsGlobalBlock(referent ir.ValueID) bool {
	_, ok := s.Globals[referent]
	return ok
}

// SetBlock implements pointer.BlockStore.
func (s *State) SetBlock(referent ir.ValueID, blk pointer.Block, global bool) {
	b, ok := blk.(*Block)
	canalerr.Assertf(ok, "State.SetBlock", "block must be a *state.Block")
	if global {
		s.Globals[referent] = b
	} else {
		s.Blocks[referent] = b
	}
}

// Resolve implements constructors.OperandResolver: a constant operand
// (nested inside a ConstExpr) is built fresh, while an instruction,
// argument, or global operand is looked up among live variables.
func (s *State) Resolve(v ir.Value) (domain.Domain, error) {
	if c, ok := v.(ir.Constant); ok {
		return s.Cons.FromConstant(c, v.ID(), s)
	}
	if d, ok := s.Vars[v.ID()]; ok {
		return d, nil
	}
	return nil, canalerr.New(canalerr.UnsupportedType, "resolve", fmt.Sprintf("no bound value for %s", v))
}

func (s *State) String() string {
	var sb strings.Builder
	sb.WriteString("state\n")
	for _, id := range sortedVars(s.Vars) {
		sb.WriteString(fmt.Sprintf("  var %d:\n", id))
		for _, line := range strings.Split(strings.TrimRight(s.Vars[id].String(), "\n"), "\n") {
			sb.WriteString("    ")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	for _, id := range sortedReferents(s.Blocks) {
		sb.WriteString("  ")
		sb.WriteString(s.Blocks[id].String())
	}
	for _, id := range sortedReferents(s.Globals) {
		sb.WriteString("  global ")
		sb.WriteString(s.Globals[id].String())
	}
	if s.Returned != nil {
		sb.WriteString("  returned:\n")
		for _, line := range strings.Split(strings.TrimRight(s.Returned.String(), "\n"), "\n") {
			sb.WriteString("    ")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	} else {
		sb.WriteString("  returned: undefined\n")
	}
	return sb.String()
}

func sortedVars(m map[ir.ValueID]domain.Domain) []ir.ValueID {
	ids := make([]ir.ValueID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
