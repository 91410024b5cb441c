package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testCatalogPath = "testdata/catalog.csv"

func TestLoad_CSV(t *testing.T) {
	c, err := Load(testCatalogPath, Options{Columns: DefaultColumns()})
	require.NoError(t, err)
	require.Equal(t, 5, c.Len())

	e := c.Entries()[0]
	assert.Equal(t, "1", e.ID)
	assert.Equal(t, "Northfield Institute of Technology", e.University)
	assert.Equal(t, "Computer Science and Artificial Intelligence", e.Program)
	assert.Equal(t, "Northfield Institute of Technology | Program Area: Computer Science and Artificial Intelligence | Location: Massachusetts", e.Description)
	assert.Equal(t, "325", e.Metadata["Average GRE Required"])
	assert.NotContains(t, e.Metadata, "University")

	gre, ok := e.Float("Average GRE Required")
	require.True(t, ok)
	assert.Equal(t, 325.0, gre)
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.xlsx")

	f := excelize.NewFile()
	rows := [][]any{
		{"id", "University", "Program", "Description", "Tuition"},
		{"cs-1", "Alpha University", "Computer Science", "algorithms and software", "42000"},
		{"ds-1", "Beta College", "Data Science", "statistics and machine learning", "38000"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	c, err := Load(path, Options{Columns: Columns{ID: "id", University: "University", Program: "Program"}})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	e := c.Entries()[1]
	assert.Equal(t, "ds-1", e.ID)
	assert.Equal(t, "Data Science", e.Program)
	assert.Equal(t, "statistics and machine learning", e.Description)
	assert.Equal(t, "38000", e.Metadata["Tuition"])
}

func TestLoad_TSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.tsv")
	content := "University\tProgram\tDescription\nAlpha\tCS\talgorithms, software\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	c, err := Load(path, Options{Columns: Columns{University: "university", Program: "program"}})
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "algorithms, software", c.Entries()[0].Description)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("", Options{})
	assert.Error(t, err)

	_, err = Load("catalog.json", Options{})
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), Options{Columns: DefaultColumns()})
	assert.Error(t, err)

	_, err = Load(testCatalogPath, Options{Columns: Columns{University: "School"}})
	assert.Error(t, err)

	_, err = Load(testCatalogPath, Options{Columns: Columns{University: "University", Description: "Summary"}})
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	rows := [][]string{
		{"\ufeffUniversity", "Description", "City"},
		{"Alpha", "  robotics  ", "Boston"},
		{"", "", ""},
		{"Beta", "", "Austin"},
		{"Gamma"},
	}

	entries, err := Parse(rows, Columns{University: "University"})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "robotics", entries[0].Description)
	assert.Equal(t, "Boston", entries[0].Metadata["City"])
	assert.Equal(t, "", entries[1].Description)
	assert.Equal(t, "4", entries[2].ID)
	assert.Empty(t, entries[2].Metadata)
}

func TestParse_NoHeader(t *testing.T) {
	_, err := Parse(nil, DefaultColumns())
	assert.Error(t, err)
}

func TestParse_HeaderOnly(t *testing.T) {
	entries, err := Parse([][]string{{"University"}}, DefaultColumns())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFindUniversity(t *testing.T) {
	c := New([]Entry{
		{ID: "1", University: "Alpha University", Program: "CS"},
		{ID: "2", University: "alpha university", Program: "Math"},
		{ID: "3", University: "Beta College"},
	})

	e, err := c.FindUniversity("  ALPHA university ")
	require.NoError(t, err)
	assert.Equal(t, "1", e.ID)

	_, err = c.FindUniversity("Gamma")
	assert.True(t, errors.Is(err, ErrUniversityNotFound))
}

func TestEntryFloat(t *testing.T) {
	e := Entry{Metadata: map[string]string{"rate": " 45% ", "name": "x"}}

	v, ok := e.Float("rate")
	require.True(t, ok)
	assert.Equal(t, 45.0, v)

	_, ok = e.Float("name")
	assert.False(t, ok)

	_, ok = e.Float("missing")
	assert.False(t, ok)

	v, ok = e.Float("RATE")
	require.True(t, ok)
	assert.Equal(t, 45.0, v)
}

func TestEntryValue(t *testing.T) {
	e := Entry{Metadata: map[string]string{"Acceptance Rate (%)": "8", "City": "Boston"}}

	v, ok := e.Value("acceptance rate (%)")
	require.True(t, ok)
	assert.Equal(t, "8", v)

	v, ok = e.Value("City")
	require.True(t, ok)
	assert.Equal(t, "Boston", v)

	_, ok = e.Value("State")
	assert.False(t, ok)
}
