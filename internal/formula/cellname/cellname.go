// Package cellname validates cell name syntax: one uppercase letter
// A-Z followed by one or more decimal digits.
package cellname

import "regexp"

var pattern = regexp.MustCompile(`^[A-Z][0-9]+$`)

// Valid reports whether name matches the cell name grammar.
func Valid(name string) bool {
	return pattern.MatchString(name)
}
