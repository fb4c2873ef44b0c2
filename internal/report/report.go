// Package report writes the CSV, XLSX and text outputs of an exercise.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"

	"cocoa-insights-go/internal/aggregator"
)

// TimestampLayout is used in generated file names
const TimestampLayout = "20060102_150405"

func Timestamp(t time.Time) string { return t.Format(TimestampLayout) }

// EnsureDir creates dir and its parents
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

// WriteCSV encodes a slice of csv-tagged structs
func WriteCSV(path string, v interface{}) error {
	b, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, b)
}

// WriteRecords writes raw rows, header first
func WriteRecords(path string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, buf.Bytes())
}

func WriteText(path, content string) error {
	return writeFile(path, []byte(content))
}

func writeFile(path string, b []byte) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Marshal is csvutil.Marshal with plain decimal floats (no exponents) rounded
// to four places, and blanks for NaN.
func Marshal(v interface{}) ([]byte, error) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.Len() == 0 {
		return csvutil.Marshal(v)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	enc.Register(func(f float64) ([]byte, error) {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, nil
		}
		return []byte(strconv.FormatFloat(math.Round(f*1e4)/1e4, 'f', -1, 64)), nil
	})
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Records converts a slice of csv-tagged structs to header + rows
func Records(v interface{}) ([][]string, error) {
	b, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return rows, nil
}

// Workbook collects sheets and saves them as one xlsx file
type Workbook struct {
	f      *excelize.File
	sheets int
}

func NewWorkbook() *Workbook {
	return &Workbook{f: excelize.NewFile()}
}

// AddStructs adds a sheet from a slice of csv-tagged structs
func (w *Workbook) AddStructs(name string, v interface{}) error {
	rows, err := Records(v)
	if err != nil {
		return err
	}
	return w.AddRows(name, rows)
}

// AddRows adds a sheet from header + rows. Numeric strings are written as
// numbers unless they carry a leading zero.
func (w *Workbook) AddRows(name string, rows [][]string) error {
	sheet := sheetName(name)
	if w.sheets == 0 {
		if err := w.f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := w.f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", sheet, err)
	}
	w.sheets++
	for i, r := range rows {
		cells := make([]interface{}, len(r))
		for j, c := range r {
			cells[j] = cellValue(c, i == 0)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write sheet %s: %w", sheet, err)
		}
	}
	if len(rows) > 0 {
		last, _ := excelize.ColumnNumberToName(len(rows[0]))
		_ = w.f.SetColWidth(sheet, "A", last, 18)
	}
	return nil
}

// Save writes the workbook, creating the directory as needed
func (w *Workbook) Save(path string) error {
	defer w.f.Close()
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func sheetName(name string) string {
	r := strings.NewReplacer(":", "", "\\", "", "/", "", "?", "", "*", "", "[", "", "]", "")
	s := r.Replace(name)
	if len([]rune(s)) > 31 {
		s = string([]rune(s)[:31])
	}
	if s == "" {
		s = "Sheet"
	}
	return s
}

func cellValue(s string, header bool) interface{} {
	if header || s == "" {
		return s
	}
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// PrintTable renders rows as an ASCII table
func PrintTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}

// PrintShares renders a distribution with count and percentage columns
func PrintShares(w io.Writer, title string, shares []aggregator.Share) {
	rows := make([][]string, 0, len(shares))
	for _, s := range shares {
		rows = append(rows, []string{s.Label, strconv.Itoa(s.Count), fmt.Sprintf("%.1f%%", s.Percent)})
	}
	PrintTable(w, []string{title, "Count", "Percentage"}, rows)
}

// PrintGroups renders group statistics
func PrintGroups(w io.Writer, title string, groups []aggregator.Group) {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			g.Key,
			strconv.Itoa(g.Count),
			fmt.Sprintf("%.2f", g.Mean),
			fmt.Sprintf("%.2f", g.Median),
			fmt.Sprintf("%.2f", g.Std),
			fmt.Sprintf("%.2f", g.Min),
			fmt.Sprintf("%.2f", g.Max),
			fmt.Sprintf("%.2f", g.Sum),
		})
	}
	PrintTable(w, []string{title, "Count", "Mean", "Median", "Std", "Min", "Max", "Total"}, rows)
}
