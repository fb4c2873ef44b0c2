package aggregator

import (
	"math"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Share is one row of a categorical distribution
type Share struct {
	Label   string  `csv:"Category"`
	Count   int     `csv:"Count"`
	Percent float64 `csv:"Percentage"`
}

// Distribution counts labels. Labels listed in order come first, in that
// order, even when their count is zero; any other label follows sorted by
// name. Percentages of a non-empty input sum to 100.
func Distribution(labels []string, order []string) []Share {
	counts := map[string]int{}
	for _, l := range labels {
		counts[l]++
	}
	keys := orderedKeys(counts, order)
	out := make([]Share, 0, len(keys))
	for _, k := range keys {
		out = append(out, Share{Label: k, Count: counts[k], Percent: pct(counts[k], len(labels))})
	}
	return out
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func orderedKeys(counts map[string]int, order []string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, o := range order {
		if !seen[o] {
			keys = append(keys, o)
			seen[o] = true
		}
	}
	var rest []string
	for k := range counts {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// Group is the numeric summary of one group
type Group struct {
	Key    string  `csv:"Group"`
	Count  int     `csv:"Count"`
	Mean   float64 `csv:"Mean"`
	Median float64 `csv:"Median"`
	Std    float64 `csv:"Std"`
	Min    float64 `csv:"Min"`
	Max    float64 `csv:"Max"`
	Sum    float64 `csv:"Total"`
}

// GroupStats summarises values per key. Groups named in order come first
// (skipped when empty); the remainder are sorted by key.
func GroupStats(keys []string, values []float64, order []string) []Group {
	byKey := map[string][]float64{}
	counts := map[string]int{}
	for i, k := range keys {
		if i >= len(values) || math.IsNaN(values[i]) {
			continue
		}
		byKey[k] = append(byKey[k], values[i])
		counts[k]++
	}
	var out []Group
	for _, k := range orderedKeys(counts, order) {
		vals := byKey[k]
		if len(vals) == 0 {
			continue
		}
		out = append(out, Summarize(k, vals))
	}
	return out
}

// Summarize computes the Group line for one slice of values
func Summarize(key string, vals []float64) Group {
	data := stats.Float64Data(vals)
	g := Group{Key: key, Count: len(vals)}
	g.Mean, _ = stats.Mean(data)
	g.Median, _ = stats.Median(data)
	g.Min, _ = stats.Min(data)
	g.Max, _ = stats.Max(data)
	g.Sum, _ = stats.Sum(data)
	if len(vals) > 1 {
		g.Std, _ = stats.StandardDeviationSample(data)
	}
	return g
}

// SortGroups orders groups by mean, highest first
func SortGroups(gs []Group) {
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Mean > gs[j].Mean })
}

// Table is a count matrix of row labels by column labels
type Table struct {
	Rows   []string
	Cols   []string
	Counts [][]int
}

// Crosstab counts co-occurrences of two label slices of equal length
func Crosstab(rows, cols []string, rowOrder, colOrder []string) Table {
	rc, cc := map[string]int{}, map[string]int{}
	for i := range rows {
		if i >= len(cols) {
			break
		}
		rc[rows[i]]++
		cc[cols[i]]++
	}
	t := Table{Rows: orderedKeys(rc, rowOrder), Cols: orderedKeys(cc, colOrder)}
	ri, ci := index(t.Rows), index(t.Cols)
	t.Counts = make([][]int, len(t.Rows))
	for i := range t.Counts {
		t.Counts[i] = make([]int, len(t.Cols))
	}
	for i := range rows {
		if i >= len(cols) {
			break
		}
		t.Counts[ri[rows[i]]][ci[cols[i]]]++
	}
	return t
}

func index(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}

// Get returns the count at a row/column label pair
func (t Table) Get(row, col string) int {
	ri, ci := index(t.Rows), index(t.Cols)
	r, ok := ri[row]
	if !ok {
		return 0
	}
	c, ok := ci[col]
	if !ok {
		return 0
	}
	return t.Counts[r][c]
}

// Records renders the table with a header row and a Total column, ready
// for a sheet or a console table.
func (t Table) Records(corner string) [][]string {
	out := [][]string{append(append([]string{corner}, t.Cols...), "Total")}
	for i, r := range t.Rows {
		line := []string{r}
		total := 0
		for _, c := range t.Counts[i] {
			line = append(line, strconv.Itoa(c))
			total += c
		}
		out = append(out, append(line, strconv.Itoa(total)))
	}
	return out
}

// Matrix is a labelled square matrix
type Matrix struct {
	Labels []string
	Values [][]float64
}

// Correlation is the pairwise Pearson matrix of equally long columns. Pairs
// with zero variance yield NaN.
func Correlation(labels []string, columns [][]float64) Matrix {
	m := Matrix{Labels: labels, Values: make([][]float64, len(columns))}
	for i := range columns {
		m.Values[i] = make([]float64, len(columns))
		for j := range columns {
			if i == j {
				m.Values[i][j] = 1
				continue
			}
			m.Values[i][j] = stat.Correlation(columns[i], columns[j], nil)
		}
	}
	return m
}

// OutlierInfo holds IQR fences and the number of values outside them
type OutlierInfo struct {
	Column  string  `csv:"Column"`
	Count   int     `csv:"Outlier_Count"`
	Percent float64 `csv:"Outlier_Percentage"`
	Lower   float64 `csv:"Lower_Bound"`
	Upper   float64 `csv:"Upper_Bound"`
}

// Quantile interpolates linearly between the closest ranks, the way
// pandas' quantile does (q in [0,1]).
func Quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Outliers applies the 1.5 x IQR rule
func Outliers(column string, vals []float64) (OutlierInfo, bool) {
	if len(vals) < 4 {
		return OutlierInfo{}, false
	}
	q1, q3 := Quantile(vals, 0.25), Quantile(vals, 0.75)
	iqr := q3 - q1
	o := OutlierInfo{Column: column, Lower: q1 - 1.5*iqr, Upper: q3 + 1.5*iqr}
	for _, v := range vals {
		if v < o.Lower || v > o.Upper {
			o.Count++
		}
	}
	o.Percent = pct(o.Count, len(vals))
	return o, true
}

// Round2 rounds to two decimals for reports
func Round2(v float64) float64 { return math.Round(v*100) / 100 }
