// Package formula turns input text into gridcalc.CellInput records and
// turns a computed value map back into output text. Parsing lives
// outside the evaluator core so the CLI can exercise the core without
// hand-rolling a second tokenizer for cell formulas.
package formula

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/efp"

	"github.com/cellmesh/gridcalc/internal/formula/cellname"

	gridcalc "github.com/cellmesh/gridcalc"
)

// Parse errors.
var (
	ErrMissingEquals = errors.New("formula: missing '='")
	ErrBadCellName   = errors.New("formula: malformed cell name")
	ErrBadAddend     = errors.New("formula: addend is neither a cell name nor an integer")
	ErrDuplicateCell = errors.New("formula: cell defined more than once")
)

var lineSplit = regexp.MustCompile(`^\s*([^=]+?)\s*=\s*(.+?)\s*$`)

// Parse turns input text (one "name = addend (+ addend)*" line per
// cell) into CellInput records sorted by Id, interning every name —
// defined cell or reference — into ids.
func Parse(ids *gridcalc.IdentTable, text string) ([]gridcalc.CellInput, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	type rawLine struct {
		name    string
		formula string
		lineNo  int
	}
	var raw []rawLine

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		m := lineSplit.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("formula: line %d: %w", lineNo, ErrMissingEquals)
		}
		name := strings.TrimSpace(m[1])
		if !cellname.Valid(name) {
			return nil, fmt.Errorf("formula: line %d: %w: %q", lineNo, ErrBadCellName, name)
		}
		raw = append(raw, rawLine{name: name, formula: m[2], lineNo: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	seenNames := make(map[string]int, len(raw))
	for _, r := range raw {
		if firstLine, dup := seenNames[r.name]; dup {
			return nil, fmt.Errorf("formula: line %d: %w: %q (first defined on line %d)", r.lineNo, ErrDuplicateCell, r.name, firstLine)
		}
		seenNames[r.name] = r.lineNo
	}

	// Intern the defined cells first so self-contained inputs keep
	// ids in file order, then parse each formula (which may intern
	// further, as-yet-unseen reference names).
	ident := make([]gridcalc.CellId, len(raw))
	for i, r := range raw {
		ident[i] = ids.Intern(r.name)
	}

	defined := make(map[gridcalc.CellId]bool, len(raw))
	inputs := make([]gridcalc.CellInput, len(raw))
	for i, r := range raw {
		f, err := parseFormula(ids, r.formula)
		if err != nil {
			return nil, fmt.Errorf("formula: line %d: %w", r.lineNo, err)
		}
		inputs[i] = gridcalc.CellInput{Id: ident[i], Name: r.name, Formula: f}
		defined[ident[i]] = true
	}

	// A name referenced by some formula but never given its own line
	// (e.g. "A0 = B1" where B1 never appears on the left of a "=") is a
	// blank cell: every CellId referenced anywhere must be a key in the
	// cell store, and a blank cell's formula is empty, evaluating to 0.
	// Without this, the evaluator would never see that id as a defined
	// input at all.
	for id := gridcalc.CellId(0); int(id) < ids.Len(); id++ {
		if !defined[id] {
			inputs = append(inputs, gridcalc.CellInput{Id: id, Name: ids.Name(id)})
		}
	}

	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Id < inputs[j].Id })
	return inputs, nil
}

// ParseEdit parses a single "name = addend (+ addend)*" line — the
// format an edit-log file feeds to ChangeCell, one edit per line —
// returning the cell name and its new formula.
func ParseEdit(ids *gridcalc.IdentTable, line string) (string, gridcalc.Formula, error) {
	line = strings.TrimSpace(line)
	m := lineSplit.FindStringSubmatch(line)
	if m == nil {
		return "", nil, ErrMissingEquals
	}
	name := strings.TrimSpace(m[1])
	if !cellname.Valid(name) {
		return "", nil, fmt.Errorf("%w: %q", ErrBadCellName, name)
	}
	f, err := parseFormula(ids, m[2])
	if err != nil {
		return "", nil, err
	}
	return name, f, nil
}

// parseFormula tokenizes the RHS with efp's Excel formula parser but
// only accepts an addend-only grammar: a "+"-separated sequence of
// signed integers or bare cell references. Any other token (a function
// call, a range, "*", "/", parentheses) is a parse error.
func parseFormula(ids *gridcalc.IdentTable, rhs string) (gridcalc.Formula, error) {
	ps := efp.ExcelParser()
	tokens := ps.Parse(rhs)
	if tokens == nil {
		return parseAddendSequence(ids, rhs)
	}

	var f gridcalc.Formula
	expectOperand := true
	for _, tok := range tokens {
		switch {
		case tok.TType == efp.TokenTypeOperand:
			// An operand is either a Range subtype (a cell reference) or
			// a bare number; parseAddend tells the two apart by name
			// shape rather than by the token's subtype.
			if !expectOperand {
				return nil, fmt.Errorf("%w: missing '+' in %q", ErrBadAddend, rhs)
			}
			a, err := parseAddend(ids, tok.TValue)
			if err != nil {
				return nil, err
			}
			f = append(f, a)
			expectOperand = false
		case tok.TValue == "+":
			if expectOperand {
				return nil, fmt.Errorf("%w: unexpected '+' in %q", ErrBadAddend, rhs)
			}
			expectOperand = true
		default:
			return nil, fmt.Errorf("%w: unsupported token %q in %q", ErrBadAddend, tok.TValue, rhs)
		}
	}
	if expectOperand || len(f) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrBadAddend, rhs)
	}
	return f, nil
}

// parseAddendSequence is the fallback hand-rolled scanner for the rare
// input efp declines to tokenize at all (e.g. a bare leading '-'),
// splitting strictly on '+'.
func parseAddendSequence(ids *gridcalc.IdentTable, rhs string) (gridcalc.Formula, error) {
	parts := strings.Split(rhs, "+")
	f := make(gridcalc.Formula, 0, len(parts))
	for _, part := range parts {
		a, err := parseAddend(ids, strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		f = append(f, a)
	}
	return f, nil
}

func parseAddend(ids *gridcalc.IdentTable, s string) (gridcalc.Addend, error) {
	s = strings.TrimSpace(s)
	if cellname.Valid(s) {
		return gridcalc.RefAddend(ids.Intern(s)), nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return gridcalc.Addend{}, fmt.Errorf("%w: %q", ErrBadAddend, s)
	}
	return gridcalc.LiteralAddend(int32(n)), nil
}
