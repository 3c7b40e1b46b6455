package gridcalc

// CellInput is the canonical record the parser collaborator hands to
// the core: one per cell, sorted by Id.
type CellInput struct {
	Id      CellId
	Name    string
	Formula Formula
}

// Evaluator is the capability set both evaluators implement. Oracle and
// Parallel are interchangeable behind it; tests diff one against the
// other.
type Evaluator interface {
	// InitialCalculate materializes every cell's value from inputs.
	InitialCalculate(inputs []CellInput) error

	// ChangeCell replaces name's formula and recomputes every cell whose
	// value depends on it. name must already be known, either as an
	// input cell or as a reference inside one.
	ChangeCell(name string, formula Formula) error

	// GetCurrentValues returns name -> value for every known cell. Must
	// not be called concurrently with InitialCalculate or ChangeCell.
	GetCurrentValues() map[string]int32
}
