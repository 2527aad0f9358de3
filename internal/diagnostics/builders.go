package diagnostics

import (
	"fmt"
	"strings"

	"bell/internal/source"
)

// RecursionBudgetExceeded reports a recursion or loop whose depth cannot be
// bounded by the configured ceiling. chain lists the activations from the
// entry point down to the one that overflowed.
func RecursionBudgetExceeded(loc *source.Location, what string, limit int, chain []string) *Diagnostic {
	d := NewError(fmt.Sprintf("%s exceeds the recursion depth budget of %d", what, limit)).
		WithCode(ErrRecursionBudgetExceeded).
		WithPrimaryLabel(loc.File(), loc, "depth cannot be bounded here").
		WithHelp("recursion and loops are unrolled at compile time, so their depth must follow from constant arguments and initial values; loops bounded only at run time are not supported. Raise max-depth if the constant depth is just too deep")
	if len(chain) > 0 {
		d.WithNote("call chain: " + strings.Join(chain, " -> "))
	}
	return d
}

// UseBeforeAssignment reports a read of a variable that is not definitely
// assigned on every path reaching it.
func UseBeforeAssignment(loc *source.Location, name string) *Diagnostic {
	return NewError(name+" is used before it is assigned").
		WithCode(ErrUseBeforeAssignment).
		WithPrimaryLabel(loc.File(), loc, "possibly unassigned here").
		WithHelp("initialize " + name + " on every path before reading it")
}

// ContractViolation reports a typed tree that breaks the front-end contract.
func ContractViolation(loc *source.Location, code, message string) *Diagnostic {
	d := NewError(message).WithCode(code)
	if loc != nil {
		d.WithPrimaryLabel(loc.File(), loc, "malformed typed tree")
	}
	return d
}

// InternalConsistency reports a broken invariant between lowering stages.
// node is the offending IR fragment, rendered as text.
func InternalConsistency(message, node string) *Diagnostic {
	d := NewError("internal compiler error: " + message).
		WithCode(ErrInternalConsistency)
	if node != "" {
		d.WithNote("at " + node)
	}
	return d
}

// InputFailure reports a file that could not be read or decoded.
func InputFailure(path string, err error) *Diagnostic {
	return NewError(fmt.Sprintf("cannot load %s: %v", path, err)).
		WithCode(ErrInputFailure)
}
