package development

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"time"

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
)

const Exercise = "development"

// Output files
const (
	FileBaseline        = "baseline_adoption.csv"
	FileFarmerLevels    = "farmer_level_summary.csv"
	FileProgressDetail  = "progress_tracking_detailed.csv"
	FileProgressSummary = "progress_tracking_summary.csv"
	FileProdGender      = "production_by_gender.csv"
	FileProdLand        = "production_by_landsize.csv"
	FilePractices       = "practice_performance.csv"
	FileSummary         = "analysis_summary.csv"
	FileWorkbook        = "analysis_report.xlsx"
	FileRecommendations = "recommendations.txt"
	FileCleaned         = "farmer_development_cleaned.csv"

	ChartBaseline   = "chart_baseline_adoption.png"
	ChartPie        = "chart_adoption_pie.png"
	ChartProgress   = "chart_progress_analysis.png"
	ChartProdGender = "chart_production_by_gender.png"
	ChartProdLand   = "chart_production_by_landsize.png"
	ChartPractices  = "chart_practice_performance.png"
)

// Result is what one development run computed
type Result struct {
	Missing    []string
	Removed    int
	Records    []Record
	Baseline   []BaselineRow
	Levels     []FarmerLevel
	Adoption   []aggregator.Share
	Competence []aggregator.Share
	Crosstab   aggregator.Table

	ProgressTracked bool
	Progress        []ProgressRecord
	ProgressSummary []ProgressShare

	ByGender  []ProductionGroup
	ByLand    []ProductionGroup
	Practices []PracticeScore
	Quality   Quality
	Cards     []actionable.ActionCard

	Generated  time.Time
	InputPath  string
	ResultsDir string
}

func (r *Result) missing(col string) bool {
	for _, m := range r.Missing {
		if m == col {
			return true
		}
	}
	return false
}

// Run executes the development exercise end to end
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Result, error) {
	res := &Result{Generated: time.Now(), ResultsDir: cfg.ResultsPath(Exercise)}
	out := func(name string) string { return filepath.Join(res.ResultsDir, name) }

	steps := []pipeline.Step{
		{Name: "load", Run: func(ctx context.Context) error {
			path := cfg.DevelopmentInput
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
			res.InputPath = path
			dataset.Summarize(t, log)
			rows, missing, err := dataset.LoadDevelopment(t)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				log.WithField("missing", missing).Warn("columns not found, dependent analyses will be skipped")
			}
			res.Missing = missing
			res.Records, res.Removed = Clean(rows)
			log.WithFields(map[string]interface{}{
				"rows":               len(res.Records),
				"duplicates_removed": res.Removed,
			}).Info("development data loaded")
			return report.WriteCSV(cfg.CleanedPath(Exercise, FileCleaned), CleanRows(res.Records))
		}},
		{Name: "baseline", Run: func(ctx context.Context) error {
			res.Baseline = Baseline(res.Records)
			res.Levels = FarmerLevels(res.Records)
			res.Adoption, res.Competence = OverallShares(res.Levels)
			res.Crosstab = AdoptionByCompetence(res.Levels)
			report.PrintShares(os.Stdout, "Overall Adoption", res.Adoption)
			if err := report.WriteCSV(out(FileBaseline), res.Baseline); err != nil {
				return err
			}
			return report.WriteCSV(out(FileFarmerLevels), res.Levels)
		}},
		{Name: "progress", Optional: true, Run: func(ctx context.Context) error {
			if res.missing(dataset.ColVisitNumber) {
				return fmt.Errorf("%w: %s", dataset.ErrMissingColumn, dataset.ColVisitNumber)
			}
			res.Progress = Progress(res.Records)
			if len(res.Progress) == 0 {
				return errors.New("no farmer has both visit 1 and visit 2 ratings")
			}
			res.ProgressTracked = true
			res.ProgressSummary = SummarizeProgress(res.Progress)
			log.WithFields(map[string]interface{}{
				"pairs":     len(res.Progress),
				"improving": StatusPct(res.ProgressSummary, "Result", categorize.Improving),
			}).Info("progress tracked")
			if err := report.WriteCSV(out(FileProgressDetail), res.Progress); err != nil {
				return err
			}
			return report.WriteCSV(out(FileProgressSummary), res.ProgressSummary)
		}},
		{Name: "production", Optional: true, Run: func(ctx context.Context) error {
			if res.missing(dataset.ColProduction) {
				return fmt.Errorf("%w: %s", dataset.ErrMissingColumn, dataset.ColProduction)
			}
			res.ByGender, res.ByLand = Production(res.Levels)
			if err := report.WriteCSV(out(FileProdGender), res.ByGender); err != nil {
				return err
			}
			return report.WriteCSV(out(FileProdLand), res.ByLand)
		}},
		{Name: "practices", Run: func(ctx context.Context) error {
			res.Practices = PracticePerformance(res.Records)
			return report.WriteCSV(out(FilePractices), res.Practices)
		}},
		{Name: "report", Run: func(ctx context.Context) error {
			res.Quality = Assess(res.Records, res.Levels)
			res.Cards = actionable.Generate(signals(res))
			if err := report.WriteCSV(out(FileSummary), Metrics(res)); err != nil {
				return err
			}
			if err := writeWorkbook(out(FileWorkbook), res); err != nil {
				return err
			}
			return report.WriteText(out(FileRecommendations), Recommendations(res))
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
	s := actionable.Signals{
		Farmers:           len(res.Levels),
		ProgressTracked:   res.ProgressTracked,
		ImprovingPct:      StatusPct(res.ProgressSummary, "Result", categorize.Improving),
		DeterioratingPct:  StatusPct(res.ProgressSummary, "Result", categorize.Deteriorating),
		Completeness:      res.Quality.Completeness,
		SingleVisitPct:    res.Quality.SingleVisit,
		MissingProduction: res.Quality.MissingProduction,
		MissingGender:     res.Quality.MissingGender,
	}
	for _, sh := range res.Adoption {
		switch sh.Label {
		case categorize.Good.String():
			s.GoodPct = sh.Percent
		case categorize.Bad.String():
			s.BadPct = sh.Percent
		}
	}
	for _, p := range res.Practices {
		s.Practices = append(s.Practices, actionable.Practice{Name: p.Variable, Score: p.ResultAvg})
	}
	genders := make([]string, len(res.Levels))
	pcts := make([]float64, len(res.Levels))
	for i, l := range res.Levels {
		genders[i], pcts[i] = l.Gender, l.AdoptionPct
	}
	for _, g := range aggregator.GroupStats(genders, pcts, nil) {
		switch g.Key {
		case categorize.Female:
			s.FemaleAdoption = g.Mean
		case categorize.Male:
			s.MaleAdoption = g.Mean
		}
	}
	return s
}

// Metrics flattens the headline numbers for analysis_summary.csv
func Metrics(res *Result) []Metric {
	q := res.Quality
	pct := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "%" }
	m := []Metric{
		{"Total Records", strconv.Itoa(q.Rows)},
		{"Duplicates Removed", strconv.Itoa(res.Removed)},
		{"Unique Farmers", strconv.Itoa(q.Farmers)},
		{"Unique Variables", strconv.Itoa(q.Variables)},
		{"Visits", strconv.Itoa(q.Visits)},
		{"Missing Production", pct(q.MissingProduction)},
		{"Missing Gender", pct(q.MissingGender)},
		{"Missing Farm Area", pct(q.MissingArea)},
		{"Missing Result", pct(q.MissingResult)},
		{"Missing Competence", pct(q.MissingCompetence)},
		{"Single Visit Farmers", pct(q.SingleVisit)},
		{"Data Completeness", pct(q.Completeness)},
	}
	for _, sh := range res.Adoption {
		m = append(m, Metric{"Adoption " + sh.Label, fmt.Sprintf("%d (%.1f%%)", sh.Count, sh.Percent)})
	}
	if res.ProgressTracked {
		for _, st := range categorize.ProgressStatuses {
			m = append(m, Metric{"Progress " + st, pct(StatusPct(res.ProgressSummary, "Result", st))})
		}
	}
	return m
}

func writeWorkbook(path string, res *Result) error {
	wb := report.NewWorkbook()
	sheets := []struct {
		name string
		v    interface{}
		skip bool
	}{
		{"Summary", Metrics(res), false},
		{"Baseline", res.Baseline, false},
		{"Farmer Levels", res.Levels, false},
		{"Progress Detail", res.Progress, !res.ProgressTracked},
		{"Progress Summary", res.ProgressSummary, !res.ProgressTracked},
		{"Production by Gender", res.ByGender, len(res.ByGender) == 0},
		{"Production by Land", res.ByLand, len(res.ByLand) == 0},
		{"Practice Performance", res.Practices, len(res.Practices) == 0},
	}
	for _, s := range sheets {
		if s.skip {
			continue
		}
		if err := wb.AddStructs(s.name, s.v); err != nil {
			return fmt.Errorf("sheet %s: %w", s.name, err)
		}
	}
	if err := wb.AddRows("Adoption x Competence", res.Crosstab.Records("Adoption \\ Competence")); err != nil {
		return err
	}
	return wb.Save(path)
}

// Recommendations renders findings, data quality and action cards
func Recommendations(res *Result) string {
	t := report.NewText("FARMER DEVELOPMENT PLAN - RECOMMENDATIONS")
	t.Line("Generated: %s", res.Generated.Format("2006-01-02 15:04:05"))
	t.Line("Input: %s", res.InputPath)

	t.Section("KEY FINDINGS")
	t.Bullet("Farmers analysed: %d", res.Quality.Farmers)
	t.Bullet("Practices tracked: %d", res.Quality.Variables)
	for _, sh := range res.Adoption {
		t.Bullet("%-8s adoption: %4d farmers (%5.1f%%)", sh.Label, sh.Count, sh.Percent)
	}
	for _, sh := range res.Competence {
		t.Bullet("%-8s competence: %4d farmers (%5.1f%%)", sh.Label, sh.Count, sh.Percent)
	}

	t.Section("PROGRESS TRACKING")
	if !res.ProgressTracked {
		t.Bullet("Not available: visit 1 and visit 2 ratings could not be paired")
	}
	for _, p := range res.ProgressSummary {
		t.Bullet("%s %s: %d (%.1f%%)", p.Measure, p.Status, p.Count, p.Percent)
	}

	if len(res.Practices) > 0 {
		t.Section("PRACTICE PERFORMANCE")
		for _, p := range res.Practices {
			t.Bullet("%s: result %.2f, competence %.2f (%s)", p.Variable, p.ResultAvg, p.CompetenceAvg, p.Level)
		}
	}

	if len(res.ByGender) > 0 {
		t.Section("PRODUCTION")
		for _, g := range append(append([]ProductionGroup{}, res.ByGender...), res.ByLand...) {
			t.Bullet("%s: %d farmers, mean %.0f kg, yield %.0f kg/ha", g.Segment, g.Farmers, g.Mean, g.YieldPerHa)
		}
	}

	t.Section("DATA QUALITY")
	q := res.Quality
	t.Bullet("Completeness: %.1f%%", q.Completeness)
	t.Bullet("Missing production: %.1f%% of farmers", q.MissingProduction)
	t.Bullet("Missing gender: %.1f%% of farmers", q.MissingGender)
	t.Bullet("Missing farm area: %.1f%% of farmers", q.MissingArea)
	t.Bullet("Single-visit farmers: %.1f%%", q.SingleVisit)

	actionable.Render(t, "RECOMMENDED ACTIONS", res.Cards)
	return t.String()
}

func drawCharts(r *chart.Renderer, res *Result, out func(string) string) error {
	const w, h = 10 * vg.Inch, 6 * vg.Inch

	measures := []string{"Response", "Result", "Competence"}
	var present []string
	byLevel := map[string][]float64{}
	for _, m := range measures {
		found := false
		vals := map[string]float64{}
		for _, b := range res.Baseline {
			if b.Measure == m {
				found = true
				vals[b.Level] = b.Percent
			}
		}
		if !found {
			continue
		}
		present = append(present, m)
		for _, l := range categorize.LevelNames() {
			byLevel[l] = append(byLevel[l], vals[l])
		}
	}
	var series []chart.Series
	for _, l := range categorize.LevelNames() {
		series = append(series, chart.Series{Name: l, Values: byLevel[l], Color: chart.LevelColors[l]})
	}
	if p, err := chart.Stacked("Baseline Adoption by Measure", "% of rated rows", present, series); err == nil {
		if err := r.Save(p, out(ChartBaseline), w, h); err != nil {
			return err
		}
	}

	labels := make([]string, len(res.Adoption))
	counts := make([]float64, len(res.Adoption))
	colors := make([]color.Color, len(res.Adoption))
	for i, sh := range res.Adoption {
		labels[i], counts[i], colors[i] = sh.Label, float64(sh.Count), chart.ColorFor(sh.Label, i)
	}
	if p, err := chart.Pie("Overall Farmer Adoption", labels, counts, colors); err == nil {
		if err := r.Save(p, out(ChartPie), 8*vg.Inch, 8*vg.Inch); err != nil {
			return err
		}
	}

	if res.ProgressTracked {
		var series []chart.Series
		for i, m := range []string{"Result", "Competence"} {
			vals := make([]float64, len(categorize.ProgressStatuses))
			for j, st := range categorize.ProgressStatuses {
				vals[j] = StatusPct(res.ProgressSummary, m, st)
			}
			series = append(series, chart.Series{Name: m, Values: vals, Color: chart.Cycle[i]})
		}
		if p, err := chart.Grouped("Progress: Visit 1 to Visit 2", "% of tracked practices", categorize.ProgressStatuses, series); err == nil {
			if err := r.Save(p, out(ChartProgress), w, h); err != nil {
				return err
			}
		}
	}

	prodChart := func(groups []ProductionGroup, title, xLabel, file string, c color.Color) error {
		l := make([]string, len(groups))
		v := make([]float64, len(groups))
		for i, g := range groups {
			l[i], v[i] = g.Segment, g.Mean
		}
		p, err := chart.Bar(title, xLabel, "Mean Production (kg)", l, v, c)
		if err != nil {
			return nil // nothing to draw
		}
		return r.Save(p, out(file), w, h)
	}
	if err := prodChart(res.ByGender, "Baseline Production by Gender", "Gender", ChartProdGender, chart.Steel); err != nil {
		return err
	}
	if err := prodChart(res.ByLand, "Baseline Production by Land Size", "Land Size", ChartProdLand, chart.Green); err != nil {
		return err
	}

	names := make([]string, len(res.Practices))
	scores := make([]float64, len(res.Practices))
	for i, p := range res.Practices {
		names[i], scores[i] = p.Variable, p.ResultAvg
	}
	if p, err := chart.HBar("Practice Performance (mean Result, 0-2)", "Mean Result", names, scores, chart.Coral); err == nil {
		if err := r.Save(p, out(ChartPractices), 12*vg.Inch, vg.Length(2+len(names)/2)*vg.Inch); err != nil {
			return err
		}
	}
	return nil
}
