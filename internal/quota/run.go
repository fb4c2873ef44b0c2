package quota

import (
	"context"
	"image/color"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"cocoa-insights-go/internal/chart"
	"cocoa-insights-go/internal/config"
	"cocoa-insights-go/internal/dataset"
	"cocoa-insights-go/internal/logger"
	"cocoa-insights-go/internal/pipeline"
	"cocoa-insights-go/internal/report"
	"cocoa-insights-go/internal/types"
)

const Exercise = "quota"

// Output files
const (
	FileWorkbook = "quota_analysis.xlsx"
	FileSummary  = "quota_summary.csv"
	FileReport   = "quota_report.txt"
	ChartUsage   = "quota_usage.png"

	topOverListed = 10
)

// Result is what one quota run computed
type Result struct {
	InputPath  string
	Dropped    int
	Entries    []Entry
	Summary    []FarmerSummary
	Stats      Stats
	Generated  time.Time
	ResultsDir string
}

// Run executes the quota exercise end to end
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Result, error) {
	res := &Result{Generated: time.Now(), ResultsDir: cfg.ResultsPath(Exercise)}
	out := func(name string) string { return filepath.Join(res.ResultsDir, name) }
	var txs []types.QuotaTransaction

	steps := []pipeline.Step{
		{Name: "load", Run: func(ctx context.Context) error {
			path := cfg.QuotaInput
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
			txs, res.Dropped, err = dataset.LoadQuota(t)
			if err != nil {
				return err
			}
			if res.Dropped > 0 {
				log.WithField("dropped", res.Dropped).Warn("rows missing id, name, volume or quota dropped")
			}
			if len(txs) == 0 {
				return dataset.ErrNoDataRows
			}
			res.InputPath = path
			return nil
		}},
		{Name: "analyze", Run: func(ctx context.Context) error {
			res.Entries = Analyze(txs)
			res.Summary = Summarize(res.Entries)
			res.Stats = Overall(res.Summary)
			log.WithFields(map[string]interface{}{
				"transactions": len(res.Entries),
				"farmers":      res.Stats.Farmers,
				"overquota":    res.Stats.Over,
			}).Info("quota analysed")
			return nil
		}},
		{Name: "report", Run: func(ctx context.Context) error {
			wb := report.NewWorkbook()
			if err := wb.AddStructs("Summary", res.Summary); err != nil {
				return err
			}
			if err := wb.AddStructs("Transactions", res.Entries); err != nil {
				return err
			}
			if over := Filter(res.Summary, StatusOver); len(over) > 0 {
				if err := wb.AddStructs("Overquota Farmers", over); err != nil {
					return err
				}
			}
			if under := Filter(res.Summary, StatusUnder); len(under) > 0 {
				if err := wb.AddStructs("Compliant Farmers", under); err != nil {
					return err
				}
			}
			if err := wb.Save(out(FileWorkbook)); err != nil {
				return err
			}
			if err := report.WriteCSV(out(FileSummary), res.Summary); err != nil {
				return err
			}
			return report.WriteText(out(FileReport), Report(res))
		}},
		{Name: "charts", Optional: true, Run: func(ctx context.Context) error {
			return drawUsage(chart.New(cfg.DPI), res, out(ChartUsage))
		}},
	}
	if err := pipeline.Run(ctx, log, steps); err != nil {
		return res, err
	}
	return res, nil
}

// Report renders the overall position and the over-quota farmers
func Report(res *Result) string {
	s := res.Stats
	t := report.NewText("VOLUME QUOTA ANALYSIS REPORT")
	t.Line("Generated: %s", res.Generated.Format("2006-01-02 15:04:05"))
	t.Line("Source: %s", res.InputPath)

	t.Section("OVERALL SUMMARY")
	t.Line("Total Farmers            : %d", s.Farmers)
	t.Line("Compliant Farmers        : %d (%.1f%%)", s.Compliant, s.CompliantPct)
	t.Line("Overquota Farmers        : %d (%.1f%%)", s.Over, s.OverPct)
	t.Line("Total Transactions       : %d", s.Transactions)
	t.Line("Rows Dropped             : %d", res.Dropped)
	t.Line("Total Volume             : %.2f Kg", s.TotalVolume)
	t.Line("Total Quota              : %.2f Kg", s.TotalQuota)
	t.Line("Total Excess             : %.2f Kg", s.TotalExcess)
	t.Line("Overall Usage            : %.1f%%", s.UsagePct)

	t.Section("OVERQUOTA FARMERS")
	over := TopOver(res.Summary, len(res.Summary))
	if len(over) == 0 {
		t.Bullet("None")
	}
	for i, f := range over {
		t.Line("%d. %s - %s", i+1, f.FarmerID, f.Name)
		t.Line("   Quota: %.2f Kg | Delivered: %.2f Kg | Excess: %.2f Kg (%.1f%%)", f.QuotaKg, f.TotalKg, f.Difference, f.UsagePct)
		t.Line("   Overquota transactions: %d of %d", f.OverTx, f.Transactions)
		for _, e := range res.Entries {
			if e.FarmerID == f.FarmerID && e.Note == NoteFirstOver {
				t.Line("   First overquota delivery: %s (%.2f Kg, %.2f Kg over)", dateOr(e.Date), e.NetKg, e.ExcessKg)
			}
		}
	}
	return t.String()
}

func dateOr(d string) string {
	if d == "" {
		return "unknown date"
	}
	return d
}

func drawUsage(r *chart.Renderer, res *Result, path string) error {
	s := res.Stats
	status, err := chart.Pie("Quota Status", []string{StatusUnder, StatusOver},
		[]float64{float64(s.Compliant), float64(s.Over)}, []color.Color{chart.Green, chart.Red})
	if err != nil {
		return err
	}

	top := TopOver(res.Summary, topOverListed)
	if len(top) == 0 {
		top = res.Summary
		if len(top) > topOverListed {
			top = top[:topOverListed]
		}
	}
	labels := make([]string, len(top))
	usage := make([]float64, len(top))
	for i, f := range top {
		labels[i], usage[i] = f.FarmerID+" "+f.Name, f.UsagePct
	}
	bars, err := chart.HBar("Quota Usage (%) - "+strconv.Itoa(len(top))+" farmers", "Usage %", labels, usage, chart.Coral)
	if err != nil {
		return err
	}
	return r.SaveGrid(path, [][]*plot.Plot{{status, bars}}, 16*vg.Inch, 7*vg.Inch)
}
