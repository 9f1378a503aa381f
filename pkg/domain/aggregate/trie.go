package aggregate

import (
	"sort"
	"strings"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/ir"
)

// trieNode is one node of the prefix tree: a label and its ordered
// children, mirroring original_source/lib/ArrayStringTrie.cpp's
// TrieNode/std::set<TrieNode*, Compare>.
type trieNode struct {
	value    string
	children []*trieNode
}

func (n *trieNode) clone() *trieNode {
	cp := &trieNode{value: n.value}
	for _, c := range n.children {
		cp.children = append(cp.children, c.clone())
	}
	return cp
}

func (n *trieNode) equal(o *trieNode) bool {
	if n.value != o.value || len(n.children) != len(o.children) {
		return false
	}
	for i, c := range n.children {
		if !c.equal(o.children[i]) {
			return false
		}
	}
	return true
}

func (n *trieNode) String() string {
	var sb strings.Builder
	sb.WriteString(n.value)
	if len(n.children) > 0 {
		sb.WriteByte('(')
		for i, c := range n.children {
			if i > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(c.String())
		}
		sb.WriteString(")?")
	}
	return sb.String()
}

func sortNodes(nodes []*trieNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].value < nodes[j].value })
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// mergeChildren performs the greedy single-level prefix sharing this
// port chooses to implement (the original leaves the general trie
// merge NotImplemented — see DESIGN.md): each child of a is paired
// against the first unused child of b that shares a prefix with it
// (exact match first), factoring the shared prefix into one node and
// leaving the diverging suffixes as siblings underneath it. Children
// that find no match are carried over unmerged. The recursion does
// not itself attempt a second round of factoring among the produced
// suffix pairs.
func mergeChildren(a, b []*trieNode) []*trieNode {
	used := make([]bool, len(b))
	var result []*trieNode
	for _, ca := range a {
		merged := false
		for j, cb := range b {
			if used[j] {
				continue
			}
			if ca.value == cb.value {
				result = append(result, &trieNode{value: ca.value, children: sortedUnique(append(ca.clone().children, cb.clone().children...))})
				used[j] = true
				merged = true
				break
			}
			if p := commonPrefixLen(ca.value, cb.value); p > 0 {
				suffixA := &trieNode{value: ca.value[p:], children: ca.children}
				suffixB := &trieNode{value: cb.value[p:], children: cb.children}
				result = append(result, &trieNode{value: ca.value[:p], children: sortedUnique([]*trieNode{suffixA, suffixB})})
				used[j] = true
				merged = true
				break
			}
		}
		if !merged {
			result = append(result, ca.clone())
		}
	}
	for j, cb := range b {
		if !used[j] {
			result = append(result, cb.clone())
		}
	}
	sortNodes(result)
	return result
}

func sortedUnique(nodes []*trieNode) []*trieNode {
	sortNodes(nodes)
	out := nodes[:0:0]
	for i, n := range nodes {
		if i > 0 && n.equal(nodes[i-1]) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// StringTrie abstracts a run of 8-bit-element array/vector values as
// a prefix tree whose root-to-leaf concatenations are its
// concretization. Grounded on
// original_source/lib/ArrayStringTrie.cpp.
type StringTrie struct {
	domain.Base
	bottom bool
	top    bool
	root   *trieNode
}

// StringTrieBottom returns the empty trie.
func StringTrieBottom(elemType ir.Type) *StringTrie {
	t := &StringTrie{bottom: true}
	t.Typ = ir.ArrayType{Elem: elemType}
	return t
}

// StringTrieTop returns the any-string trie.
func StringTrieTop(elemType ir.Type) *StringTrie {
	t := &StringTrie{top: true}
	t.Typ = ir.ArrayType{Elem: elemType}
	return t
}

// StringTrieConst returns the trie containing exactly value.
func StringTrieConst(elemType ir.Type, value string) *StringTrie {
	t := &StringTrie{root: &trieNode{children: []*trieNode{{value: value}}}}
	t.Typ = ir.ArrayType{Len: uint64(len(value)), Elem: elemType}
	return t
}

func (t *StringTrie) IsBottom() bool { return t.bottom }
func (t *StringTrie) IsTop() bool    { return t.top }
func (t *StringTrie) SetBottom()     { t.bottom, t.top, t.root = true, false, nil }
func (t *StringTrie) SetTop()        { t.bottom, t.top, t.root = false, true, nil }

func (t *StringTrie) Clone() domain.Domain {
	cp := &StringTrie{Base: t.Base, bottom: t.bottom, top: t.top}
	if t.root != nil {
		cp.root = t.root.clone()
	}
	return cp
}

func (t *StringTrie) Equal(other domain.Domain) bool {
	o, ok := other.(*StringTrie)
	if !ok {
		return false
	}
	if t.IsTop() || o.IsTop() {
		return t.IsTop() && o.IsTop()
	}
	if t.bottom != o.bottom {
		return false
	}
	if t.bottom {
		return true
	}
	return t.root.equal(o.root)
}

func (t *StringTrie) Accuracy() float64 {
	if t.top {
		return 0
	}
	if t.bottom {
		return 1
	}
	return 0.5
}

func (t *StringTrie) String() string {
	var sb strings.Builder
	sb.WriteString("stringTrie ")
	switch {
	case t.top:
		sb.WriteString("top\n")
	case t.bottom:
		sb.WriteString("bottom\n")
	default:
		sb.WriteByte('\n')
		sb.WriteString("    ")
		sb.WriteString(t.root.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func asTrie(d domain.Domain, op string) (*StringTrie, error) {
	st, ok := d.(*StringTrie)
	if !ok {
		return nil, canalerr.New(canalerr.UnsupportedType, op, "operand is not a string trie")
	}
	return st, nil
}

func (t *StringTrie) Join(a, b domain.Domain) error {
	as, err := asTrie(a, "join")
	if err != nil {
		return err
	}
	bs, err := asTrie(b, "join")
	if err != nil {
		return err
	}
	switch {
	case as.top || bs.top:
		t.SetTop()
	case as.bottom:
		*t = *bs.Clone().(*StringTrie)
	case bs.bottom:
		*t = *as.Clone().(*StringTrie)
	default:
		t.bottom, t.top = false, false
		t.root = &trieNode{children: mergeChildren(as.root.children, bs.root.children)}
	}
	return nil
}

func (t *StringTrie) SetZero(place ir.ValueID) error {
	t.SetTop()
	return nil
}
