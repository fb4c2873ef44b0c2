package adoption

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cocoa-insights-go/internal/config"
	"cocoa-insights-go/internal/logger"
	"cocoa-insights-go/internal/types"
)

var practices = []string{"Pruning", "Weeding", "Shade"}

func farmer(id, gender, region string, area float64, ratings ...string) types.AdoptionFarmer {
	f := types.AdoptionFarmer{ID: id, Gender: gender, Region: region, Practices: map[string]string{}}
	if !math.IsNaN(area) {
		f.AreaHa = types.Float(area)
	}
	for i, r := range ratings {
		f.Practices[practices[i]] = r
	}
	return f
}

func fixture() []types.AdoptionFarmer {
	return []types.AdoptionFarmer{
		farmer("F1", "Female", "Manabi", 1.5, "G", "G", "M"),
		farmer("F2", "Male", "Manabi", 3, "M", "B", "B"),
		farmer("F3", "Female", "Guayas", 4, "G", "M", ""),
		farmer("F4", "Male", "Guayas", math.NaN(), "B", "M", "M"),
	}
}

func TestScore(t *testing.T) {
	scores := Score(fixture(), practices)
	require.Len(t, scores, 4)

	assert.Equal(t, 5, scores[0].Score)
	assert.Equal(t, 6, scores[0].MaxScore)
	assert.InDelta(t, 83.33, scores[0].AdoptionPct, 1e-9)
	assert.Equal(t, "Good", scores[0].Level)
	assert.Equal(t, "<2ha", scores[0].LandSize)

	assert.Equal(t, "Bad", scores[1].Level)
	assert.Equal(t, "2-4ha", scores[1].LandSize)

	// blank rating is not counted in the maximum
	assert.Equal(t, 2, scores[2].Rated)
	assert.InDelta(t, 75, scores[2].AdoptionPct, 1e-9)
	assert.Equal(t, "≥4ha", scores[2].LandSize)

	assert.Equal(t, "Medium", scores[3].Level)
	assert.Equal(t, "Unknown", scores[3].LandSize)
	assert.True(t, math.IsNaN(scores[3].AreaHa))

	unrated := Score([]types.AdoptionFarmer{farmer("F9", "", "X", 1, "?", "", "")}, practices)
	assert.Zero(t, unrated[0].AdoptionPct)
	assert.Equal(t, "Bad", unrated[0].Level)
}

func TestSummarizePractices(t *testing.T) {
	sum := SummarizePractices(fixture(), practices)
	require.Len(t, sum, 3)

	pruning := sum[0]
	assert.Equal(t, 4, pruning.Rated)
	assert.Equal(t, 2, pruning.Good)
	assert.InDelta(t, 50, pruning.GoodPct, 1e-9)
	assert.InDelta(t, 1.25, pruning.MeanScore, 1e-9)

	shade := sum[2]
	assert.Equal(t, 3, shade.Rated)
	assert.Zero(t, shade.Good)
	assert.InDelta(t, 100, shade.GoodPct+shade.MediumPct+shade.BadPct, 0.02)
	assert.InDelta(t, 0.67, shade.MeanScore, 1e-9)
}

func TestSegmentsAndLevels(t *testing.T) {
	scores := Score(fixture(), practices)

	levels := LevelShares(scores)
	require.Len(t, levels, 3)
	assert.Equal(t, "Good", levels[0].Label)
	assert.Equal(t, 2, levels[0].Count)
	total := 0.0
	for _, l := range levels {
		total += l.Percent
	}
	assert.InDelta(t, 100, total, 1e-9)

	segs := Segments(scores)
	regions := SegmentsOf(segs, "Region")
	require.Len(t, regions, 2)
	assert.Equal(t, "Guayas", regions[0].Group, "highest mean first")
	assert.InDelta(t, 54.17, regions[0].Mean, 0.011)

	genders := SegmentsOf(segs, "Gender")
	require.Len(t, genders, 2)
	assert.Equal(t, "Male", genders[0].Group)
	assert.InDelta(t, 25, genders[0].Mean, 1e-9)

	lands := SegmentsOf(segs, "Land Size")
	assert.Len(t, lands, 4)

	m, ok := Correlations(scores)
	require.True(t, ok)
	assert.Equal(t, 1.0, m.Values[0][0])
	assert.Greater(t, m.Values[1][2], 0.9, "score and percentage move together")

	_, ok = Correlations(scores[:2])
	assert.False(t, ok)
}

func TestSignals(t *testing.T) {
	res := &Result{Practices: practices, Scores: Score(fixture(), practices)}
	res.Summary = SummarizePractices(fixture(), practices)
	res.Levels = LevelShares(res.Scores)
	res.Segments = Segments(res.Scores)

	s := signals(res)
	assert.Equal(t, 4, s.Farmers)
	assert.InDelta(t, 50, s.GoodPct, 1e-9)
	assert.InDelta(t, 25, s.BadPct, 1e-9)
	assert.InDelta(t, 11.0/12*100, s.Completeness, 1e-9)
	assert.Len(t, s.Practices, 3)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	rows := [][]interface{}{
		{"Farmer ID", "Farmer Name", "Gender", "Region", "Farm Area (ha)", "Pruning", "Weeding", "Shade"},
		{"F1", "Ana", "F", "Manabi", 1.5, "G", "G", "M"},
		{"F2", "Luis", "M", "Manabi", 3, "M", "B", "B"},
		{"F2", "Luis", "M", "Manabi", 3, "M", "B", "B"},
		{"F3", "Rosa", "Female", "Guayas", 4, "G", "M", ""},
		{"F4", "Jose", "Male", "Guayas", "", "B", "M", "M"},
	}
	f := excelize.NewFile()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	input := filepath.Join(dir, "adoption.xlsx")
	require.NoError(t, f.SaveAs(input))
	require.NoError(t, f.Close())

	cfg := &config.Config{
		ResultsDir:    filepath.Join(dir, "results"),
		CleanedDir:    filepath.Join(dir, "cleaned"),
		AdoptionInput: input,
		ChartConfig:   config.ChartConfig{DPI: 40},
	}
	res, err := Run(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, practices, res.Practices)
	require.Len(t, res.Scores, 4)
	assert.Equal(t, "Female", res.Scores[0].Gender)
	assert.NotEmpty(t, res.Cards)

	for _, name := range []string{
		FileScores, FilePractices, FileSegments, FileOutliers, FileReport,
		ChartDistribution, ChartPie, ChartStacked, ChartLandSize, ChartRegion, ChartCorrelation,
	} {
		assert.FileExists(t, filepath.Join(res.ResultsDir, name))
	}
	assert.FileExists(t, filepath.Join(cfg.CleanedDir, Exercise, FileCleaned))

	txt, err := os.ReadFile(filepath.Join(res.ResultsDir, FileReport))
	require.NoError(t, err)
	assert.Contains(t, string(txt), "COCOA ADOPTION ANALYSIS - SUMMARY REPORT")
	assert.Contains(t, string(txt), "RECOMMENDATIONS")
}

func TestRunMissingInput(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir(), ResultsDir: t.TempDir()}
	_, err := Run(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
}
