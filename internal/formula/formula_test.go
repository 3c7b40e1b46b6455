package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gridcalc "github.com/cellmesh/gridcalc"
)

func TestParseLiteralsAndReferences(t *testing.T) {
	ids := gridcalc.NewIdentTable()
	inputs, err := Parse(ids, "A0 = 1\nA1 = 2\nA2 = A0 + A1 + 3\n")
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	byName := make(map[string]gridcalc.CellInput, len(inputs))
	for _, in := range inputs {
		byName[in.Name] = in
	}

	a2 := byName["A2"]
	require.Len(t, a2.Formula, 3)
	assert.True(t, a2.Formula[0].IsRef)
	assert.True(t, a2.Formula[1].IsRef)
	assert.False(t, a2.Formula[2].IsRef)
	assert.Equal(t, int32(3), a2.Formula[2].Literal)
}

func TestParseSortsByIdInFileOrder(t *testing.T) {
	ids := gridcalc.NewIdentTable()
	inputs, err := Parse(ids, "B0 = 1\nA0 = 2\n")
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "B0", inputs[0].Name)
	assert.Equal(t, "A0", inputs[1].Name)
}

func TestParseReferenceToUndefinedNameYieldsBlankCell(t *testing.T) {
	ids := gridcalc.NewIdentTable()
	inputs, err := Parse(ids, "A0 = B1 + 3\n")
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	byName := make(map[string]gridcalc.CellInput, len(inputs))
	for _, in := range inputs {
		byName[in.Name] = in
	}

	b1, ok := byName["B1"]
	require.True(t, ok, "B1 is referenced but never defined on its own line; it must still get a blank-cell entry")
	assert.Empty(t, b1.Formula)
}

func TestParseSkipsBlankLines(t *testing.T) {
	ids := gridcalc.NewIdentTable()
	inputs, err := Parse(ids, "A0 = 1\n\n\nB0 = A0\n")
	require.NoError(t, err)
	assert.Len(t, inputs, 2)
}

func TestParseRejectsDuplicateCellDefinition(t *testing.T) {
	ids := gridcalc.NewIdentTable()
	_, err := Parse(ids, "A1 = 1\nA1 = 2\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateCell)
}

func TestParseMissingEquals(t *testing.T) {
	ids := gridcalc.NewIdentTable()
	_, err := Parse(ids, "A0 1\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingEquals)
}

func TestParseBadCellName(t *testing.T) {
	ids := gridcalc.NewIdentTable()
	_, err := Parse(ids, "a0 = 1\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadCellName)
}

func TestParseBadAddend(t *testing.T) {
	ids := gridcalc.NewIdentTable()
	_, err := Parse(ids, "A0 = A1 * 2\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadAddend)
}

func TestParseEditSingleLine(t *testing.T) {
	ids := gridcalc.NewIdentTable()
	ids.Intern("A0")
	name, f, err := ParseEdit(ids, "A0 = 10 + 5")
	require.NoError(t, err)
	assert.Equal(t, "A0", name)
	require.Len(t, f, 2)
	assert.Equal(t, int32(10), f[0].Literal)
	assert.Equal(t, int32(5), f[1].Literal)
}

func TestParseEditReferencesExistingIds(t *testing.T) {
	ids := gridcalc.NewIdentTable()
	a0 := ids.Intern("A0")
	_, f, err := ParseEdit(ids, "B0 = A0 + 1")
	require.NoError(t, err)
	require.Len(t, f, 2)
	assert.Equal(t, a0, f[0].Ref)
}

func TestParseEditMissingEquals(t *testing.T) {
	ids := gridcalc.NewIdentTable()
	_, _, err := ParseEdit(ids, "A0 10")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingEquals)
}

func TestSerializeSortsByColumnThenRow(t *testing.T) {
	out := Serialize(map[string]int32{"B2": 2, "A10": 10, "A2": -1})
	assert.Equal(t, "A2 = -1\nA10 = 10\nB2 = 2\n", out)
}

func TestSerializeEmpty(t *testing.T) {
	assert.Equal(t, "", Serialize(nil))
}
