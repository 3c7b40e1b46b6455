package gridcalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeCellPropagatesToDependents(t *testing.T) {
	ids := NewIdentTable()
	a := ids.Intern("A1")
	b := ids.Intern("B1")
	c := ids.Intern("C1")
	inputs := []CellInput{
		{Id: a, Name: "A1", Formula: Formula{LiteralAddend(1)}},
		{Id: b, Name: "B1", Formula: Formula{RefAddend(a), LiteralAddend(10)}},
		{Id: c, Name: "C1", Formula: Formula{RefAddend(b)}},
	}
	// Pad with unrelated cells so the A1->B1->C1 chain stays well under
	// the default 0.8 fallback ratio; otherwise the edit would legitimately
	// trigger a fallback recalculation instead of the incremental path this
	// test means to exercise.
	for i := 0; i < 10; i++ {
		name := string(rune('D'+i)) + "1"
		id := ids.Intern(name)
		inputs = append(inputs, CellInput{Id: id, Name: name, Formula: Formula{LiteralAddend(int32(i))}})
	}
	p := NewParallel(ids, testConfig())
	require.NoError(t, p.InitialCalculate(inputs))
	require.Equal(t, int32(11), p.GetCurrentValues()["B1"])
	require.Equal(t, int32(11), p.GetCurrentValues()["C1"])

	require.NoError(t, p.ChangeCell("A1", Formula{LiteralAddend(100)}))
	values := p.GetCurrentValues()
	assert.Equal(t, int32(100), values["A1"])
	assert.Equal(t, int32(110), values["B1"])
	assert.Equal(t, int32(110), values["C1"])
	assert.False(t, p.LastFallbackTriggered())
}

func TestChangeCellRewiresDependencies(t *testing.T) {
	ids := NewIdentTable()
	a := ids.Intern("A1")
	b := ids.Intern("B1")
	c := ids.Intern("C1")
	p := NewParallel(ids, testConfig())
	require.NoError(t, p.InitialCalculate([]CellInput{
		{Id: a, Name: "A1", Formula: Formula{LiteralAddend(1)}},
		{Id: b, Name: "B1", Formula: Formula{LiteralAddend(1000)}},
		{Id: c, Name: "C1", Formula: Formula{RefAddend(a)}},
	}))

	require.NoError(t, p.ChangeCell("C1", Formula{RefAddend(b)}))
	assert.Equal(t, int32(1000), p.GetCurrentValues()["C1"])

	// A1 no longer has a live edge to C1; changing it must not touch C1.
	require.NoError(t, p.ChangeCell("A1", Formula{LiteralAddend(9999)}))
	assert.Equal(t, int32(1000), p.GetCurrentValues()["C1"])
}

func TestChangeCellUnknownCell(t *testing.T) {
	ids := NewIdentTable()
	p := NewParallel(ids, testConfig())
	require.NoError(t, p.InitialCalculate(nil))
	err := p.ChangeCell("Z9", Formula{LiteralAddend(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCell)
}

func TestChangeCellTriggersFallbackAboveThreshold(t *testing.T) {
	ids := NewIdentTable()
	// A star graph: every other cell depends directly on the hub, so a
	// single edit invalidates nearly all of them, well past the 0.8
	// fallback ratio.
	hub := ids.Intern("A1")
	inputs := []CellInput{{Id: hub, Name: "A1", Formula: Formula{LiteralAddend(1)}}}
	for i := 0; i < 20; i++ {
		name := string(rune('B'+i)) + "1"
		id := ids.Intern(name)
		inputs = append(inputs, CellInput{Id: id, Name: name, Formula: Formula{RefAddend(hub)}})
	}

	cfg := Config{NumWorkers: 4, FallbackRatio: 0.8}
	p := NewParallel(ids, cfg)
	require.NoError(t, p.InitialCalculate(inputs))

	require.NoError(t, p.ChangeCell("A1", Formula{LiteralAddend(5)}))
	assert.True(t, p.LastFallbackTriggered())

	values := p.GetCurrentValues()
	for name, v := range values {
		if name == "A1" {
			continue
		}
		assert.Equal(t, int32(5), v, "dependent %s should reflect the fallback recalculation", name)
	}
}

func TestChangeCellBelowThresholdDoesNotFallback(t *testing.T) {
	ids := NewIdentTable()
	hub := ids.Intern("A1")
	inputs := []CellInput{{Id: hub, Name: "A1", Formula: Formula{LiteralAddend(1)}}}
	// Only one of many cells depends on the hub; the affected fraction
	// stays far below 0.8.
	var dependents []string
	for i := 0; i < 20; i++ {
		name := string(rune('B'+i)) + "1"
		id := ids.Intern(name)
		var f Formula
		if i == 0 {
			f = Formula{RefAddend(hub)}
			dependents = append(dependents, name)
		} else {
			f = Formula{LiteralAddend(int32(i))}
		}
		inputs = append(inputs, CellInput{Id: id, Name: name, Formula: f})
	}

	p := NewParallel(ids, Config{NumWorkers: 4, FallbackRatio: 0.8})
	require.NoError(t, p.InitialCalculate(inputs))

	require.NoError(t, p.ChangeCell("A1", Formula{LiteralAddend(42)}))
	assert.False(t, p.LastFallbackTriggered())
	assert.Equal(t, int32(42), p.GetCurrentValues()[dependents[0]])
}

func TestChangeCellRejectsReferenceToUnknownSlot(t *testing.T) {
	ids := NewIdentTable()
	a := ids.Intern("A1")
	p := NewParallel(ids, testConfig())
	require.NoError(t, p.InitialCalculate([]CellInput{
		{Id: a, Name: "A1", Formula: Formula{LiteralAddend(1)}},
	}))

	// Z9 is interned (as formula.ParseEdit would intern any ref-shaped
	// token in an edit line) but was never part of an InitialCalculate
	// or ChangeCell call, so the store has no slot for it. This must be
	// reported as an unknown cell, not misattributed as a cycle.
	z := ids.Intern("Z9")
	err := p.ChangeCell("A1", Formula{RefAddend(z)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCell)
	var cycleErr *CycleError
	assert.NotErrorAs(t, err, &cycleErr)
}

func TestChangeCellRejectsIntroducedCycle(t *testing.T) {
	ids := NewIdentTable()
	a := ids.Intern("A1")
	b := ids.Intern("B1")
	c := ids.Intern("C1")
	p := NewParallel(ids, testConfig())
	require.NoError(t, p.InitialCalculate([]CellInput{
		{Id: a, Name: "A1", Formula: Formula{LiteralAddend(1)}},
		{Id: b, Name: "B1", Formula: Formula{RefAddend(a)}},
		{Id: c, Name: "C1", Formula: Formula{RefAddend(b)}},
	}))

	// A1 = C1 closes A1 -> B1 -> C1 -> A1 into a cycle. Here the affected
	// set would be all three cells (over the 0.8 threshold of 2.4), so
	// without the pre-flight check the fallback's cycle check would only
	// report it after the edit had already rewired the DAG and
	// invalidated every cell; the pre-flight check rejects it first.
	err := p.ChangeCell("A1", Formula{RefAddend(c)})
	require.Error(t, err)
	var cycleErr *CycleError
	assert.ErrorAs(t, err, &cycleErr)

	// The rejected edit must not have mutated any state: A1 keeps its
	// old formula and value, unaffected by the failed rewire attempt.
	assert.Equal(t, int32(1), p.GetCurrentValues()["A1"])
	require.NoError(t, p.ChangeCell("A1", Formula{LiteralAddend(9)}))
	assert.Equal(t, int32(9), p.GetCurrentValues()["A1"])
	assert.Equal(t, int32(9), p.GetCurrentValues()["B1"])
	assert.Equal(t, int32(9), p.GetCurrentValues()["C1"])
}

func TestChangeCellMatchesOracleAcrossEditSequence(t *testing.T) {
	idsP := NewIdentTable()
	inputsP := buildWideDiamond(idsP, 5, 7)
	p := NewParallel(idsP, testConfig())
	require.NoError(t, p.InitialCalculate(inputsP))

	idsO := NewIdentTable()
	inputsO := buildWideDiamond(idsO, 5, 7)
	o := NewOracle(idsO)
	require.NoError(t, o.InitialCalculate(inputsO))

	edits := []struct {
		name string
		v    int32
	}{
		{"A1", 42}, {"C1", -7}, {"B2", 1000}, {"A1", 0},
	}
	for _, e := range edits {
		require.NoError(t, p.ChangeCell(e.name, Formula{LiteralAddend(e.v)}))
		require.NoError(t, o.ChangeCell(e.name, Formula{LiteralAddend(e.v)}))
	}

	assert.Equal(t, o.GetCurrentValues(), p.GetCurrentValues())
}
