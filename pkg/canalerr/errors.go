// Package canalerr defines the closed set of abnormal conditions the
// analysis core can signal, per the error-handling taxonomy: fatal
// precondition violations, unsupported IR, not-yet-implemented
// transfers, and budget exhaustion.
package canalerr

import "fmt"

// Kind classifies an Error.
type Kind int

const (
	// UnsupportedType marks an IR type the Constructors factory cannot
	// build a Domain for.
	UnsupportedType Kind = iota
	// UnsupportedOpcode marks a transfer the interpreter has no case
	// for at all (distinct from NotImplemented: the opcode is simply
	// outside the IR this analyzer understands).
	UnsupportedOpcode
	// NotImplemented marks a transfer that is part of the documented
	// contract but whose domain-specific rule is deliberately absent
	// (e.g. Bits.Icmp, StringTrie merge of two non-bottom tries before
	// it was implemented here).
	NotImplemented
	// BudgetExhausted marks the driver stopping early because its
	// step budget ran out; callers should treat the accompanying
	// summaries as partial, not unsound.
	BudgetExhausted
)

func (k Kind) String() string {
	switch k {
	case UnsupportedType:
		return "UnsupportedType"
	case UnsupportedOpcode:
		return "UnsupportedOpcode"
	case NotImplemented:
		return "NotImplemented"
	case BudgetExhausted:
		return "BudgetExhausted"
	default:
		return "Unknown"
	}
}

// Error is a recoverable signal: the caller downgrades the affected
// Domain to top (or, for BudgetExhausted, stops the driver) and
// continues. It is never used for precondition violations — those
// panic with AssertionFailed (see Assertf).
type Error struct {
	Kind   Kind
	Op     string // opcode or operation name, e.g. "icmp", "trunc"
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Detail)
}

// New constructs an *Error of the given kind.
func New(kind Kind, op, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// Unsupported wraps an unsupported IR type.
func Unsupported(op, detail string) *Error {
	return New(UnsupportedType, op, detail)
}

// UnsupportedOp wraps an unsupported opcode.
func UnsupportedOp(op, detail string) *Error {
	return New(UnsupportedOpcode, op, detail)
}

// TODO wraps a not-yet-implemented transfer.
func TODO(op, detail string) *Error {
	return New(NotImplemented, op, detail)
}

// AssertionFailed is a fatal precondition violation: bit-width
// mismatch, out-of-bounds concrete access, type mismatch between
// operands. It is raised with Assertf and is expected to panic;
// pkg/driver recovers at the per-function-job boundary only.
type AssertionFailed struct {
	Location string
	Detail   string
}

func (e *AssertionFailed) Error() string {
	return fmt.Sprintf("assertion failed at %s: %s", e.Location, e.Detail)
}

// Assertf panics with an *AssertionFailed if cond is false.
func Assertf(cond bool, location, format string, args ...interface{}) {
	if cond {
		return
	}
	panic(&AssertionFailed{Location: location, Detail: fmt.Sprintf(format, args...)})
}
