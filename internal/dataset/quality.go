package dataset

import (
	"sort"
	"strings"
)

// MissingStat is the blank-cell count for one column
type MissingStat struct {
	Column  string  `csv:"Column"`
	Count   int     `csv:"Missing_Count"`
	Percent float64 `csv:"Missing_Percentage"`
}

// MissingValues reports columns with at least one blank cell, most missing first
func MissingValues(t *Table) []MissingStat {
	var out []MissingStat
	if len(t.Rows) == 0 {
		return out
	}
	for j, h := range t.Headers {
		n := 0
		for i := range t.Rows {
			if t.Cell(i, j) == "" {
				n++
			}
		}
		if n > 0 {
			out = append(out, MissingStat{
				Column:  h,
				Count:   n,
				Percent: float64(n) / float64(len(t.Rows)) * 100,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// DropDuplicates removes exact duplicate rows, keeping the first occurrence
func DropDuplicates(t *Table) (*Table, int) {
	seen := make(map[string]struct{}, len(t.Rows))
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		key := strings.Join(r, "\x1f")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, r)
	}
	return &Table{Path: t.Path, Headers: t.Headers, Rows: rows}, len(t.Rows) - len(rows)
}
