package gridcalc

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the evaluator surface: exported, wrapped with
// fmt.Errorf("%w: ...") for call-site context, never panics for caller
// mistakes that are cheap to detect ahead of time.
var (
	// ErrUnknownCell is returned by ChangeCell when given a name, or a
	// formula referencing a name, that has no slot in the evaluator's
	// cell store (never interned, or interned but not part of the inputs
	// the store was built from).
	ErrUnknownCell = errors.New("gridcalc: unknown cell")

	// ErrCycle is returned when the formula set contains a dependency
	// cycle. Cycles are a caller error; neither evaluator attempts to
	// recover from one.
	ErrCycle = errors.New("gridcalc: dependency cycle detected")
)

// CycleError wraps ErrCycle with the cells left unresolved by the cycle
// check, so a caller can report which formulas to fix.
type CycleError struct {
	Cells []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("gridcalc: dependency cycle detected among %d cells: %s",
		len(e.Cells), strings.Join(e.Cells, ", "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// UnknownCellError wraps ErrUnknownCell with the offending name.
type UnknownCellError struct {
	Name string
}

func (e *UnknownCellError) Error() string {
	return fmt.Sprintf("gridcalc: unknown cell %q", e.Name)
}

func (e *UnknownCellError) Unwrap() error { return ErrUnknownCell }
