package dataset

import (
	"github.com/montanaflynn/stats"

	"cocoa-insights-go/internal/aggregator"
	"cocoa-insights-go/internal/logger"
)

// ColumnSummary is the describe() line of a numeric column
type ColumnSummary struct {
	Column string  `csv:"Column"`
	Count  int     `csv:"Count"`
	Mean   float64 `csv:"Mean"`
	Std    float64 `csv:"Std"`
	Min    float64 `csv:"Min"`
	Q1     float64 `csv:"Q1"`
	Median float64 `csv:"Median"`
	Q3     float64 `csv:"Q3"`
	Max    float64 `csv:"Max"`
}

// Profile is a compact overview of a sheet, used for the summary reports
type Profile struct {
	Rows       int
	Columns    []string
	Kinds      map[string]string // column -> "numeric" | "text"
	Missing    []MissingStat
	Duplicates int
	Numeric    []ColumnSummary
}

// Summarize profiles a table: shape, column kinds, blanks, duplicates and
// basic statistics of numeric columns.
func Summarize(t *Table, log *logger.Logger) Profile {
	log = log.WithComponent("dataset.summary")
	log.WithField("path", t.Path).Info("profiling dataset")

	p := Profile{
		Rows:    len(t.Rows),
		Columns: t.Headers,
		Kinds:   make(map[string]string, len(t.Headers)),
		Missing: MissingValues(t),
	}
	_, p.Duplicates = DropDuplicates(t)

	numeric := map[string]bool{}
	for _, c := range t.NumericColumns() {
		numeric[c] = true
	}
	for j, h := range t.Headers {
		if !numeric[h] {
			p.Kinds[h] = "text"
			continue
		}
		p.Kinds[h] = "numeric"
		if s, ok := Describe(h, t.Values(j)); ok {
			p.Numeric = append(p.Numeric, s)
		}
	}

	log.WithFields(map[string]interface{}{
		"rows":         p.Rows,
		"columns":      len(p.Columns),
		"numeric":      len(p.Numeric),
		"with_missing": len(p.Missing),
		"duplicates":   p.Duplicates,
	}).Info("dataset profile complete")
	return p
}

// Describe computes count, mean, std and quartiles of one column
func Describe(name string, vals []float64) (ColumnSummary, bool) {
	if len(vals) == 0 {
		return ColumnSummary{}, false
	}
	data := stats.Float64Data(vals)
	s := ColumnSummary{Column: name, Count: len(vals)}
	s.Mean, _ = stats.Mean(data)
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.Median, _ = stats.Median(data)
	if len(vals) > 1 {
		s.Std, _ = stats.StandardDeviationSample(data)
	}
	s.Q1 = aggregator.Quantile(vals, 0.25)
	s.Q3 = aggregator.Quantile(vals, 0.75)
	return s, true
}
