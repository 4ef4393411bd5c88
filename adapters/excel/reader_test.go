package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"goinsight/domain/insight"
	"goinsight/internal/engine"
	"goinsight/internal/errors"
	"goinsight/internal/testkit"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadData_CSV(t *testing.T) {
	path := writeCSV(t, "region,area_type,routes,population\nA,urban,806,6000000\n,,,\nB,rural, 714 ,8000000\n")

	data, err := NewDataReader(path).ReadData()
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "area_type", "routes", "population"}, data.Headers)
	require.Len(t, data.Rows, 2, "blank rows are dropped")
	assert.Equal(t, "714", data.Rows[1]["routes"])

	ds := data.Dataset()
	require.Len(t, ds.Rows, 2)
	v, ok := ds.Rows[0].Value("routes")
	require.True(t, ok)
	assert.Equal(t, 806.0, v)
	assert.Equal(t, "A", ds.Rows[0].Attributes["region"])
	_, ok = ds.Rows[0].Value("region")
	assert.False(t, ok)
}

func TestReadData_CSVDuplicateHeader(t *testing.T) {
	path := writeCSV(t, "region,region\nA,B\n")

	_, err := NewDataReader(path).ReadData()
	require.Error(t, err)
	assert.Equal(t, errors.CodeDataLoad, errors.GetCode(err))
}

func TestReadData_HeaderOnly(t *testing.T) {
	path := writeCSV(t, "region,routes\n")

	_, err := NewDataReader(path).ReadData()
	require.Error(t, err)
	assert.Equal(t, errors.CodeDataLoad, errors.GetCode(err))
}

func TestReadData_MissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "absent.xlsx")).ReadData()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, errors.CodeDataLoad, errors.GetCode(err))
}

func TestReadData_ExcelFirstSheet(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"region", "area_type", "routes", "population"},
		{"A", "urban", 806, 6000000},
		{"B", "urban", 1326, 12000000},
	})

	ds, err := NewDataReader(path).ReadDataset()
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	v, ok := ds.Rows[1].Value("population")
	require.True(t, ok)
	assert.Equal(t, 12000000.0, v)
}

func TestReadData_ExcelNamedSheet(t *testing.T) {
	path := writeWorkbook(t, "Transit", [][]any{
		{"region", "routes"},
		{"C", 595},
	})

	ds, err := NewDataReader(path).WithSheet("Transit").ReadDataset()
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "C", ds.Rows[0].Attributes["region"])

	_, err = NewDataReader(path).WithSheet("Missing").ReadDataset()
	require.Error(t, err)
	assert.Equal(t, errors.CodeDataLoad, errors.GetCode(err))
}

func TestReadDataset_NarrativeMatchesInMemoryFixture(t *testing.T) {
	path := writeCSV(t, testkit.CSV(testkit.TransitDataset()))

	ds, err := NewDataReader(path).ReadDataset()
	require.NoError(t, err)

	cfg := testkit.TransitMetric()
	filters := insight.Filters{Entities: []string{"F"}}
	fromFile := engine.New().Run(ds, cfg, filters)
	inMemory := engine.New().Run(testkit.TransitDataset(), cfg, filters)

	assert.Equal(t, inMemory.Summary, fromFile.Summary)
	assert.Equal(t, inMemory.ID, fromFile.ID)
}

func TestWriteResult(t *testing.T) {
	result := engine.New().Run(testkit.TransitDataset(), testkit.TransitMetric(), insight.Filters{Entities: []string{"F"}})

	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, result))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{narrativeSheet, evidenceSheet}, f.GetSheetList())

	summary, err := f.GetCellValue(narrativeSheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, result.Summary, summary)

	rows, err := f.GetRows(evidenceSheet)
	require.NoError(t, err)
	require.Len(t, rows, len(result.Evidence)+1)
	assert.Equal(t, "rule_id", rows[0][0])
	assert.Equal(t, "outcome", rows[0][1])
}
