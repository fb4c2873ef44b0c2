package adoption

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"cocoa-insights-go/internal/actionable"
	"cocoa-insights-go/internal/aggregator"
	"cocoa-insights-go/internal/categorize"
	"cocoa-insights-go/internal/chart"
	"cocoa-insights-go/internal/config"
	"cocoa-insights-go/internal/dataset"
	"cocoa-insights-go/internal/logger"
	"cocoa-insights-go/internal/pipeline"
	"cocoa-insights-go/internal/report"
	"cocoa-insights-go/internal/types"
)

const Exercise = "adoption"

// Output files
const (
	FileScores    = "adoption_farmer_scores.csv"
	FilePractices = "adoption_practice_summary.csv"
	FileSegments  = "adoption_by_segment.csv"
	FileOutliers  = "adoption_outliers.csv"
	FileReport    = "analysis_summary_report.txt"
	FileCleaned   = "test1_cocoa_adoption_cleaned.xlsx"

	ChartDistribution = "adoption_distribution.png"
	ChartPie          = "adoption_levels_pie.png"
	ChartStacked      = "practice_adoption_stacked.png"
	ChartLandSize     = "adoption_by_land_size.png"
	ChartRegion       = "adoption_by_region.png"
	ChartCorrelation  = "correlation_heatmap.png"
)

// Result is what one adoption run computed
type Result struct {
	Profile    dataset.Profile
	Removed    int
	Outliers   []aggregator.OutlierInfo
	Practices  []string
	Scores     []FarmerScore
	Summary    []PracticeSummary
	Segments   []Segment
	Levels     []aggregator.Share
	Matrix     aggregator.Matrix
	HasMatrix  bool
	Cards      []actionable.ActionCard
	Generated  time.Time
	InputPath  string
	ResultsDir string
}

// Run executes the adoption exercise end to end
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Result, error) {
	res := &Result{Generated: time.Now(), ResultsDir: cfg.ResultsPath(Exercise)}
	var (
		table   *dataset.Table
		farmers []types.AdoptionFarmer
	)
	out := func(name string) string { return filepath.Join(res.ResultsDir, name) }

	steps := []pipeline.Step{
		{Name: "load", Run: func(ctx context.Context) error {
			path := cfg.AdoptionInput
			if path == "" {
				p, err := dataset.FindInput(cfg.RawDir(Exercise))
				if err != nil {
					return err
				}
				path = p
			}
			t, err := dataset.ReadTable(path)
			if err != nil {
				return err
			}
			table, res.InputPath = t, path
			res.Profile = dataset.Summarize(t, log)
			return nil
		}},
		{Name: "clean", Run: func(ctx context.Context) error {
			if len(res.Profile.Missing) > 0 {
				rows := make([][]string, len(res.Profile.Missing))
				for i, m := range res.Profile.Missing {
					rows[i] = []string{m.Column, strconv.Itoa(m.Count), fmt.Sprintf("%.2f%%", m.Percent)}
				}
				report.PrintTable(os.Stdout, []string{"Column", "Missing", "Percent"}, rows)
			}
			table, res.Removed = dataset.DropDuplicates(table)
			for _, col := range table.NumericColumns() {
				if o, ok := aggregator.Outliers(col, table.Values(table.Index(col))); ok {
					res.Outliers = append(res.Outliers, o)
					if o.Count > 0 {
						log.WithFields(map[string]interface{}{
							"column": col,
							"count":  o.Count,
							"lower":  aggregator.Round2(o.Lower),
							"upper":  aggregator.Round2(o.Upper),
						}).Warn("outliers found")
					}
				}
			}
			wb := report.NewWorkbook()
			if err := wb.AddRows("Cleaned Data", append([][]string{table.Headers}, table.Rows...)); err != nil {
				return err
			}
			log.WithField("duplicates_removed", res.Removed).Info("cleaned data ready")
			return wb.Save(cfg.CleanedPath(Exercise, FileCleaned))
		}},
		{Name: "score", Run: func(ctx context.Context) error {
			f, practices, missing, err := dataset.LoadAdoption(table)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				log.WithField("missing", missing).Warn("identity columns not found")
			}
			farmers, res.Practices = f, practices
			res.Scores = Score(farmers, practices)
			res.Summary = SummarizePractices(farmers, practices)
			res.Levels = LevelShares(res.Scores)
			log.WithFields(map[string]interface{}{
				"farmers":   len(res.Scores),
				"practices": len(practices),
			}).Info("adoption scored")
			return nil
		}},
		{Name: "aggregate", Run: func(ctx context.Context) error {
			res.Segments = Segments(res.Scores)
			res.Matrix, res.HasMatrix = Correlations(res.Scores)
			if !res.HasMatrix {
				log.Warn("not enough farm areas for correlation analysis")
			}
			report.PrintShares(os.Stdout, "Adoption Level", res.Levels)
			return nil
		}},
		{Name: "report", Run: func(ctx context.Context) error {
			if err := report.WriteCSV(out(FileScores), res.Scores); err != nil {
				return err
			}
			if err := report.WriteCSV(out(FilePractices), res.Summary); err != nil {
				return err
			}
			if err := report.WriteCSV(out(FileSegments), res.Segments); err != nil {
				return err
			}
			if err := report.WriteCSV(out(FileOutliers), res.Outliers); err != nil {
				return err
			}
			res.Cards = actionable.Generate(signals(res))
			return report.WriteText(out(FileReport), SummaryReport(res))
		}},
		{Name: "charts", Optional: true, Run: func(ctx context.Context) error {
			return drawCharts(chart.New(cfg.DPI), res, out)
		}},
	}
	if err := pipeline.Run(ctx, log, steps); err != nil {
		return res, err
	}
	return res, nil
}

func signals(res *Result) actionable.Signals {
	s := actionable.Signals{Farmers: len(res.Scores)}
	for _, sh := range res.Levels {
		switch sh.Label {
		case categorize.Good.String():
			s.GoodPct = sh.Percent
		case categorize.Bad.String():
			s.BadPct = sh.Percent
		}
	}
	for _, p := range res.Summary {
		if p.Rated > 0 {
			s.Practices = append(s.Practices, actionable.Practice{Name: p.Practice, Score: p.MeanScore})
		}
	}
	for _, seg := range SegmentsOf(res.Segments, "Gender") {
		switch seg.Group {
		case categorize.Female:
			s.FemaleAdoption = seg.Mean
		case categorize.Male:
			s.MaleAdoption = seg.Mean
		}
	}
	rated, total := 0, 0
	for _, sc := range res.Scores {
		rated += sc.Rated
		total += len(res.Practices)
	}
	if total > 0 {
		s.Completeness = float64(rated) / float64(total) * 100
	}
	return s
}

// SummaryReport renders the dataset overview, results and recommendations
func SummaryReport(res *Result) string {
	t := report.NewText("COCOA ADOPTION ANALYSIS - SUMMARY REPORT")
	t.Line("Generated: %s", res.Generated.Format("2006-01-02 15:04:05"))
	t.Line("Input: %s", res.InputPath)

	t.Section("1. DATASET OVERVIEW")
	t.Bullet("Total records: %d", res.Profile.Rows)
	t.Bullet("Total columns: %d", len(res.Profile.Columns))
	t.Bullet("Duplicates removed: %d", res.Removed)
	t.Bullet("Practice columns: %d", len(res.Practices))

	t.Section("2. COLUMNS")
	for i, c := range res.Profile.Columns {
		t.Line("   %d. %s (%s)", i+1, c, res.Profile.Kinds[c])
	}

	t.Section("3. MISSING VALUES")
	if len(res.Profile.Missing) == 0 {
		t.Bullet("No missing values found")
	}
	for _, m := range res.Profile.Missing {
		t.Bullet("%s: %d (%.2f%%)", m.Column, m.Count, m.Percent)
	}

	t.Section("4. BASIC STATISTICS")
	for _, s := range res.Profile.Numeric {
		t.Bullet("%s: n=%d mean=%.2f std=%.2f min=%.2f median=%.2f max=%.2f",
			s.Column, s.Count, s.Mean, s.Std, s.Min, s.Median, s.Max)
	}
	for _, o := range res.Outliers {
		if o.Count > 0 {
			t.Bullet("%s: %d outliers outside [%.2f, %.2f]", o.Column, o.Count, o.Lower, o.Upper)
		}
	}

	t.Section("5. ADOPTION LEVELS")
	for _, sh := range res.Levels {
		t.Bullet("%-8s %4d farmers (%5.1f%%)", sh.Label, sh.Count, sh.Percent)
	}

	t.Section("6. PRACTICES")
	for _, p := range res.Summary {
		t.Bullet("%s: Good %.1f%% | Medium %.1f%% | Bad %.1f%% (mean %.2f)", p.Practice, p.GoodPct, p.MediumPct, p.BadPct, p.MeanScore)
	}

	t.Section("7. SEGMENTS")
	for _, s := range res.Segments {
		t.Bullet("%s / %s: %.1f%% mean adoption (%d farmers)", s.Dimension, s.Group, s.Mean, s.Farmers)
	}

	if res.HasMatrix {
		t.Section("8. CORRELATION")
		for i, l := range res.Matrix.Labels {
			line := l + ":"
			for j := range res.Matrix.Labels {
				line += fmt.Sprintf(" %6.2f", res.Matrix.Values[i][j])
			}
			t.Bullet("%s", line)
		}
	}

	actionable.Render(t, "RECOMMENDATIONS", res.Cards)
	return t.String()
}

func drawCharts(r *chart.Renderer, res *Result, out func(string) string) error {
	const w, h = 10 * vg.Inch, 6 * vg.Inch

	labels := make([]string, len(res.Levels))
	counts := make([]float64, len(res.Levels))
	colors := make([]color.Color, len(res.Levels))
	for i, sh := range res.Levels {
		labels[i], counts[i], colors[i] = sh.Label, float64(sh.Count), chart.ColorFor(sh.Label, i)
	}
	if p, err := chart.Bar("Cocoa Adoption Distribution", "Adoption Level", "Number of Farmers", labels, counts, chart.Steel); err == nil {
		if err := r.Save(p, out(ChartDistribution), w, h); err != nil {
			return err
		}
	}
	if p, err := chart.Pie("Overall Adoption Levels", labels, counts, colors); err == nil {
		if err := r.Save(p, out(ChartPie), 8*vg.Inch, 8*vg.Inch); err != nil {
			return err
		}
	}

	names := make([]string, len(res.Summary))
	good := make([]float64, len(res.Summary))
	medium := make([]float64, len(res.Summary))
	bad := make([]float64, len(res.Summary))
	for i, p := range res.Summary {
		names[i], good[i], medium[i], bad[i] = p.Practice, p.GoodPct, p.MediumPct, p.BadPct
	}
	if p, err := chart.Stacked("Practice Adoption by Level", "% of rated farmers", names, []chart.Series{
		{Name: "Good", Values: good, Color: chart.Green},
		{Name: "Medium", Values: medium, Color: chart.Orange},
		{Name: "Bad", Values: bad, Color: chart.Red},
	}); err == nil {
		if err := r.Save(p, out(ChartStacked), 14*vg.Inch, 7*vg.Inch); err != nil {
			return err
		}
	}

	segChart := func(dim, file string, horizontal bool, c color.Color) error {
		segs := SegmentsOf(res.Segments, dim)
		l := make([]string, len(segs))
		v := make([]float64, len(segs))
		for i, s := range segs {
			l[i], v[i] = s.Group, s.Mean
		}
		var (
			p   *plot.Plot
			err error
		)
		if horizontal {
			p, err = chart.HBar("Average Adoption by "+dim, "Average Adoption %", l, v, c)
		} else {
			p, err = chart.Bar("Average Adoption by "+dim, dim, "Average Adoption %", l, v, c)
		}
		if err != nil {
			return nil // no groups to draw
		}
		return r.Save(p, out(file), w, h)
	}
	if err := segChart("Land Size", ChartLandSize, false, chart.Green); err != nil {
		return err
	}
	if err := segChart("Region", ChartRegion, true, chart.Coral); err != nil {
		return err
	}

	if res.HasMatrix {
		p, err := chart.Heatmap("Correlation Matrix", res.Matrix.Labels, res.Matrix.Values)
		if err != nil {
			return err
		}
		if err := r.Save(p, out(ChartCorrelation), 8*vg.Inch, 7*vg.Inch); err != nil {
			return err
		}
	}
	return nil
}
