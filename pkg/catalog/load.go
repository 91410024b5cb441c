package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	UniversityColumnDefault = "University"
	ProgramColumnDefault    = "Program Strength Area"
	LocationColumnDefault   = "Location (State)"

	utf8BOM = "\ufeff"
)

var descriptionCandidates = []string{"description", "program description", "summary"}

// Part is a labeled column used to compose descriptions.
type Part struct {
	Column string `yaml:"column"`
	Label  string `yaml:"label"`
}

// Columns maps catalog headers onto entry fields. Header matching ignores case.
type Columns struct {
	ID          string `yaml:"id"`
	University  string `yaml:"university"`
	Program     string `yaml:"program"`
	Description string `yaml:"description"`
	// Compose builds "<university> | <label>: <value> | ..." when the
	// catalog has no description column.
	Compose []Part `yaml:"compose"`
}

// DefaultColumns matches the university admission requirements dataset.
func DefaultColumns() Columns {
	return Columns{
		University: UniversityColumnDefault,
		Program:    ProgramColumnDefault,
		Compose: []Part{
			{Column: ProgramColumnDefault, Label: "Program Area"},
			{Column: LocationColumnDefault, Label: "Location"},
		},
	}
}

// Options controls catalog loading.
type Options struct {
	// Sheet selects the spreadsheet tab (first sheet when empty).
	Sheet   string
	Columns Columns
}

// Load reads the catalog at path. Supported formats: .xlsx, .csv, .tsv.
func Load(path string, opts Options) (*Catalog, error) {
	if path == "" {
		return nil, errors.New("catalog path not specified")
	}

	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readSpreadsheet(path, opts.Sheet)
	case ".csv":
		rows, err = readDelimited(path, ',')
	case ".tsv":
		rows, err = readDelimited(path, '\t')
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	entries, err := Parse(rows, opts.Columns)
	if err != nil {
		return nil, fmt.Errorf("error parsing catalog %s: %w", filepath.Base(path), err)
	}

	slog.Debug("catalog loaded", "path", path, "entries", len(entries))
	return New(entries), nil
}

func readSpreadsheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// Parse maps raw rows (header first) onto entries.
func Parse(rows [][]string, cols Columns) ([]Entry, error) {
	if len(rows) == 0 {
		return nil, errors.New("catalog has no header row")
	}

	header := make([]string, len(rows[0]))
	pos := make(map[string]int, len(header))
	for i, h := range rows[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		header[i] = strings.TrimSpace(h)
		k := strings.ToLower(header[i])
		if _, ok := pos[k]; !ok && k != "" {
			pos[k] = i
		}
	}

	find := func(name string) int {
		if name == "" {
			return -1
		}
		if i, ok := pos[strings.ToLower(strings.TrimSpace(name))]; ok {
			return i
		}
		return -1
	}

	uniCol := find(cols.University)
	if uniCol < 0 {
		return nil, fmt.Errorf("university column %q not found", cols.University)
	}
	idCol := find(cols.ID)
	progCol := find(cols.Program)

	descCol := find(cols.Description)
	if cols.Description != "" && descCol < 0 {
		return nil, fmt.Errorf("description column %q not found", cols.Description)
	}
	if descCol < 0 {
		for _, c := range descriptionCandidates {
			if descCol = find(c); descCol >= 0 {
				break
			}
		}
	}

	entries := make([]Entry, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}

		cell := func(i int) string {
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		e := Entry{
			ID:         cell(idCol),
			University: cell(uniCol),
			Program:    cell(progCol),
			Metadata:   make(map[string]string, len(header)),
		}
		if e.ID == "" {
			e.ID = strconv.Itoa(n + 1)
		}

		for i, h := range header {
			if h == "" || i == uniCol || i == idCol || i == descCol {
				continue
			}
			if v := cell(i); v != "" {
				e.Metadata[h] = v
			}
		}

		if descCol >= 0 {
			e.Description = cell(descCol)
		} else {
			e.Description = compose(e, cols.Compose)
		}

		entries = append(entries, e)
	}

	return entries, nil
}

func compose(e Entry, parts []Part) string {
	items := make([]string, 0, len(parts)+1)
	if e.University != "" {
		items = append(items, e.University)
	}
	for _, p := range parts {
		v, _ := e.Value(p.Column)
		if v == "" {
			continue
		}
		if p.Label != "" {
			v = p.Label + ": " + v
		}
		items = append(items, v)
	}
	return strings.Join(items, " | ")
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
