package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cocoa-insights-go/internal/aggregator"
)

type row struct {
	ID    string  `csv:"Farmer ID"`
	Score float64 `csv:"Score"`
}

func TestWriteCSVCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, WriteCSV(path, []row{{"F1", 3}, {"007", 1.5}, {"F9", 2500000}}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Farmer ID,Score\nF1,3\n007,1.5\nF9,2500000\n", string(b))
}

func TestWorkbookSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	wb := NewWorkbook()
	require.NoError(t, wb.AddStructs("Farmers", []row{{"007", 2}}))
	require.NoError(t, wb.AddRows("A very long sheet name that will be cut", [][]string{{"k", "v"}, {"total", "10"}}))
	require.NoError(t, wb.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	sheets := f.GetSheetList()
	require.Len(t, sheets, 2)
	assert.Equal(t, "Farmers", sheets[0])
	assert.Len(t, []rune(sheets[1]), 31)

	id, err := f.GetCellValue("Farmers", "A2")
	require.NoError(t, err)
	assert.Equal(t, "007", id)
	score, err := f.GetCellValue("Farmers", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", score)
}

func TestWriteCSVEmptySliceWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteCSV(path, []row{}))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Farmer ID,Score")
}

func TestTimestamp(t *testing.T) {
	ts := Timestamp(time.Date(2025, 11, 3, 14, 5, 9, 0, time.UTC))
	assert.Equal(t, "20251103_140509", ts)
}

func TestPrintShares(t *testing.T) {
	var buf bytes.Buffer
	PrintShares(&buf, "Level", []aggregator.Share{{Label: "Good", Count: 3, Percent: 75}})
	out := buf.String()
	assert.Contains(t, out, "Level")
	assert.Contains(t, out, "Good")
	assert.Contains(t, out, "75.0%")
}

func TestText(t *testing.T) {
	txt := NewText("TITLE")
	txt.Section("1. OVERVIEW")
	txt.Bullet("Total: %d", 4)
	s := txt.String()
	assert.Contains(t, s, "TITLE\n")
	assert.Contains(t, s, "  • Total: 4\n")

	pct := NewText("Adoption >= 50%")
	pct.Section("Share 100%")
	assert.Contains(t, pct.String(), "Adoption >= 50%\n")
	assert.Contains(t, pct.String(), "\nShare 100%\n")
	assert.NotContains(t, pct.String(), "%!")
}
