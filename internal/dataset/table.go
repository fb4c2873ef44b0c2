package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheets      = errors.New("no sheets")
	ErrNoDataRows    = errors.New("no data rows")
	ErrMissingColumn = errors.New("missing required column")
	ErrNoInput       = errors.New("no spreadsheet found")
)

// Table is a header row plus data rows, each padded to the header width
type Table struct {
	Path    string
	Headers []string
	Rows    [][]string
}

// NewTable trims headers and pads every row
func NewTable(headers []string, rows [][]string) *Table {
	h := make([]string, len(headers))
	for i, v := range headers {
		h[i] = strings.TrimSpace(v)
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := make([]string, len(h))
		for j := 0; j < len(h) && j < len(r); j++ {
			row[j] = strings.TrimSpace(r[j])
		}
		out = append(out, row)
	}
	return &Table{Headers: h, Rows: out}
}

// ReadTable loads the first sheet of an xlsx workbook, or a csv file
func ReadTable(path string) (*Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	default:
		rows, err = readXLSX(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoDataRows)
	}
	t := NewTable(rows[0], dropBlank(rows[1:]))
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoDataRows)
	}
	t.Path = path
	return t, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()
	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func dropBlank(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, r := range rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// FindInput returns the first spreadsheet in dir, sorted by name
func FindInput(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".xlsx", ".xls", ".csv":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%s: %w", dir, ErrNoInput)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

// Column describes how to locate a logical column in a sheet
type Column struct {
	Name     string   // canonical header
	Aliases  []string // other exact headers
	Keywords []string // fallback: lower-cased header contains all of these
}

// Find resolves a column: exact name, then aliases, then keywords. -1 if absent.
func (t *Table) Find(c Column) int {
	for _, name := range append([]string{c.Name}, c.Aliases...) {
		if i := t.Index(name); i >= 0 {
			return i
		}
	}
	if len(c.Keywords) == 0 {
		return -1
	}
	for i, h := range t.Headers {
		l := strings.ToLower(h)
		all := true
		for _, k := range c.Keywords {
			if !strings.Contains(l, k) {
				all = false
				break
			}
		}
		if all {
			return i
		}
	}
	return -1
}

// Index is a case-insensitive exact header lookup
func (t *Table) Index(name string) int {
	for i, h := range t.Headers {
		if strings.EqualFold(h, strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

// Resolve locates every column and reports the names it could not find
func (t *Table) Resolve(cols ...Column) (map[string]int, []string) {
	idx := make(map[string]int, len(cols))
	var missing []string
	for _, c := range cols {
		i := t.Find(c)
		idx[c.Name] = i
		if i < 0 {
			missing = append(missing, c.Name)
		}
	}
	return idx, missing
}

func (t *Table) Cell(row, col int) string {
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Float parses a numeric cell, tolerating thousands separators
func (t *Table) Float(row, col int) (float64, bool) {
	return ParseFloat(t.Cell(row, col))
}

func (t *Table) Int(row, col int) (int, bool) {
	f, ok := t.Float(row, col)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func ParseFloat(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NumericColumns lists headers whose non-blank cells all parse as numbers
func (t *Table) NumericColumns() []string {
	var out []string
	for j, h := range t.Headers {
		seen := 0
		numeric := true
		for i := range t.Rows {
			c := t.Cell(i, j)
			if c == "" {
				continue
			}
			seen++
			if _, ok := ParseFloat(c); !ok {
				numeric = false
				break
			}
		}
		if numeric && seen > 0 {
			out = append(out, h)
		}
	}
	return out
}

// Values returns the parsed numbers of a column, skipping blanks
func (t *Table) Values(col int) []float64 {
	var out []float64
	for i := range t.Rows {
		if v, ok := t.Float(i, col); ok {
			out = append(out, v)
		}
	}
	return out
}

// Column returns the index of an exact header, -1 if absent
func (t *Table) Column(name string) int { return t.Index(name) }

func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// MissingColumns lists required headers not present in the table
func (t *Table) MissingColumns(required ...string) []string {
	var out []string
	for _, r := range required {
		if !t.Has(r) {
			out = append(out, r)
		}
	}
	return out
}
