// Package gridcalc is an in-memory spreadsheet evaluation engine.
//
// Cells are named by a letter-plus-number identifier ("B17") and defined
// by an additive formula over signed 32-bit literals and references to
// other cells. The package exposes two interchangeable evaluators behind
// the Evaluator interface: Oracle, a single-threaded depth-first
// implementation that doubles as the correctness reference, and Parallel,
// a lock-free concurrent evaluator used for both the initial bulk
// calculation and incremental recomputation after an edit.
package gridcalc
