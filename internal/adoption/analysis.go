// Package adoption scores cocoa practice adoption from the wide Ecuador
// survey: one row per farmer, one G/M/B column per practice.
package adoption

import (
	"math"

	"cocoa-insights-go/internal/aggregator"
	"cocoa-insights-go/internal/categorize"
	"cocoa-insights-go/internal/types"
)

// FarmerScore is the adoption result of one farmer
type FarmerScore struct {
	ID          string  `csv:"Farmer ID"`
	Name        string  `csv:"Farmer Name"`
	Gender      string  `csv:"Gender"`
	Region      string  `csv:"Region"`
	AreaHa      float64 `csv:"Farm Area (ha)"` // NaN when blank
	LandSize    string  `csv:"Land Size"`
	Score       int     `csv:"Total Score"`
	Rated       int     `csv:"Rated Practices"`
	MaxScore    int     `csv:"Max Score"`
	AdoptionPct float64 `csv:"Adoption %"`
	Level       string  `csv:"Adoption Level"`
}

// Score sums the ordinal ratings of every farmer. Blank or unreadable
// ratings are left out of both the score and the maximum.
func Score(farmers []types.AdoptionFarmer, practices []string) []FarmerScore {
	out := make([]FarmerScore, 0, len(farmers))
	for _, f := range farmers {
		s := FarmerScore{
			ID:       f.ID,
			Name:     f.Name,
			Gender:   f.Gender,
			Region:   f.Region,
			AreaHa:   math.NaN(),
			LandSize: categorize.LandBucket(f.AreaHa.Float64, f.AreaHa.Valid),
		}
		if f.AreaHa.Valid {
			s.AreaHa = f.AreaHa.Float64
		}
		for _, p := range practices {
			lvl, ok := categorize.ParseLevel(f.Practices[p])
			if !ok {
				continue
			}
			s.Score += lvl.Score()
			s.Rated++
		}
		s.MaxScore = 2 * s.Rated
		if s.MaxScore > 0 {
			s.AdoptionPct = aggregator.Round2(float64(s.Score) / float64(s.MaxScore) * 100)
		}
		s.Level = categorize.OverallLevel(s.AdoptionPct).String()
		out = append(out, s)
	}
	return out
}

// PracticeSummary is the G/M/B split of one practice
type PracticeSummary struct {
	Practice  string  `csv:"Practice"`
	Rated     int     `csv:"Rated"`
	Good      int     `csv:"Good"`
	Medium    int     `csv:"Medium"`
	Bad       int     `csv:"Bad"`
	GoodPct   float64 `csv:"Good %"`
	MediumPct float64 `csv:"Medium %"`
	BadPct    float64 `csv:"Bad %"`
	MeanScore float64 `csv:"Mean Score"`
}

// SummarizePractices computes the level split of every practice over the
// farmers that were rated on it
func SummarizePractices(farmers []types.AdoptionFarmer, practices []string) []PracticeSummary {
	out := make([]PracticeSummary, 0, len(practices))
	for _, p := range practices {
		var labels []string
		sum := 0
		for _, f := range farmers {
			lvl, ok := categorize.ParseLevel(f.Practices[p])
			if !ok {
				continue
			}
			labels = append(labels, lvl.String())
			sum += lvl.Score()
		}
		ps := PracticeSummary{Practice: p, Rated: len(labels)}
		for _, sh := range aggregator.Distribution(labels, categorize.LevelNames()) {
			switch sh.Label {
			case categorize.Good.String():
				ps.Good, ps.GoodPct = sh.Count, aggregator.Round2(sh.Percent)
			case categorize.Medium.String():
				ps.Medium, ps.MediumPct = sh.Count, aggregator.Round2(sh.Percent)
			case categorize.Bad.String():
				ps.Bad, ps.BadPct = sh.Count, aggregator.Round2(sh.Percent)
			}
		}
		if ps.Rated > 0 {
			ps.MeanScore = aggregator.Round2(float64(sum) / float64(ps.Rated))
		}
		out = append(out, ps)
	}
	return out
}

// Segment is the mean adoption of one group within a dimension
type Segment struct {
	Dimension string  `csv:"Dimension"`
	Group     string  `csv:"Group"`
	Farmers   int     `csv:"Farmers"`
	Mean      float64 `csv:"Mean Adoption %"`
	Median    float64 `csv:"Median Adoption %"`
	Min       float64 `csv:"Min Adoption %"`
	Max       float64 `csv:"Max Adoption %"`
}

// Segments groups adoption % by region (highest mean first), gender and
// land size
func Segments(scores []FarmerScore) []Segment {
	regions := make([]string, len(scores))
	genders := make([]string, len(scores))
	lands := make([]string, len(scores))
	pcts := make([]float64, len(scores))
	for i, s := range scores {
		regions[i], genders[i], lands[i], pcts[i] = s.Region, s.Gender, s.LandSize, s.AdoptionPct
	}

	byRegion := aggregator.GroupStats(regions, pcts, nil)
	aggregator.SortGroups(byRegion)

	var out []Segment
	add := func(dim string, groups []aggregator.Group) {
		for _, g := range groups {
			out = append(out, Segment{
				Dimension: dim,
				Group:     g.Key,
				Farmers:   g.Count,
				Mean:      aggregator.Round2(g.Mean),
				Median:    aggregator.Round2(g.Median),
				Min:       g.Min,
				Max:       g.Max,
			})
		}
	}
	add("Region", byRegion)
	add("Gender", aggregator.GroupStats(genders, pcts, []string{categorize.Male, categorize.Female}))
	add("Land Size", aggregator.GroupStats(lands, pcts, categorize.LandBuckets))
	return out
}

// SegmentsOf filters segments of one dimension
func SegmentsOf(segs []Segment, dim string) []Segment {
	var out []Segment
	for _, s := range segs {
		if s.Dimension == dim {
			out = append(out, s)
		}
	}
	return out
}

// LevelShares is the overall level distribution, Good first
func LevelShares(scores []FarmerScore) []aggregator.Share {
	labels := make([]string, len(scores))
	for i, s := range scores {
		labels[i] = s.Level
	}
	return aggregator.Distribution(labels, categorize.LevelNames())
}

// Correlations relates farm area, total score and adoption % across
// farmers with a known area
func Correlations(scores []FarmerScore) (aggregator.Matrix, bool) {
	var area, score, pct []float64
	for _, s := range scores {
		if math.IsNaN(s.AreaHa) {
			continue
		}
		area = append(area, s.AreaHa)
		score = append(score, float64(s.Score))
		pct = append(pct, s.AdoptionPct)
	}
	if len(area) < 3 {
		return aggregator.Matrix{}, false
	}
	return aggregator.Correlation(
		[]string{"Farm Area (ha)", "Total Score", "Adoption %"},
		[][]float64{area, score, pct},
	), true
}
