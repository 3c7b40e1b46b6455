package formula

import (
	"sort"
	"strconv"
	"strings"
)

// Serialize turns a name -> value map into one "name = value" line per
// cell, ordered by column letter ascending then row number ascending.
func Serialize(values map[string]int32) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, ri := splitName(names[i])
		cj, rj := splitName(names[j])
		if ci != cj {
			return ci < cj
		}
		return ri < rj
	})

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(" = ")
		b.WriteString(strconv.FormatInt(int64(values[name]), 10))
		b.WriteByte('\n')
	}
	return b.String()
}

func splitName(name string) (col string, row int) {
	i := 0
	for i < len(name) && name[i] >= 'A' && name[i] <= 'Z' {
		i++
	}
	col = name[:i]
	row, _ = strconv.Atoi(name[i:])
	return col, row
}
