package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goinsight/domain/insight"
	"goinsight/internal/errors"
	"goinsight/internal/testkit"
)

const catalogPath = "../../metrics.yaml"

func writeTransitCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transit.csv")
	require.NoError(t, os.WriteFile(path, []byte(testkit.CSV(testkit.TransitDataset())), 0o644))
	return path
}

func TestParseFilters(t *testing.T) {
	f, err := parseFilters([]string{"F", " "}, []string{"area_type=urban, rural", "year=2024"})
	require.NoError(t, err)
	assert.Equal(t, []string{"F"}, f.Entities)
	assert.Equal(t, map[string][]string{"area_type": {"urban", "rural"}, "year": {"2024"}}, f.Subsets)

	_, err = parseFilters(nil, []string{"urban"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	_, err := loadFile("data.parquet", "", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
}

func TestRunCommand_JSON(t *testing.T) {
	cmd := newRunCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"transit_routes", "--data", writeTransitCSV(t), "--metrics", catalogPath, "-e", "F"})
	require.NoError(t, cmd.Execute())

	var result insight.NarrativeResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, insight.ScopeSingleEntity, result.Context.Scope)
	assert.Contains(t, result.Summary, "ranking 6 of 9")
	assert.NotEmpty(t, result.Evidence)
}

func TestRunCommand_MarkdownToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.md")
	cmd := newRunCmd()
	cmd.SetArgs([]string{"transit_routes", "--data", writeTransitCSV(t), "--metrics", catalogPath,
		"--filter", "area_type=urban", "--format", "markdown", "-o", target})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scope: subset")
}

func TestRunCommand_UnknownMetric(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"nope", "--data", writeTransitCSV(t), "--metrics", catalogPath})
	assert.Error(t, cmd.Execute())
}

func TestBatchCommand(t *testing.T) {
	cmd := newBatchCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--data", writeTransitCSV(t), "--metrics", catalogPath, "-e", "F"})
	require.NoError(t, cmd.Execute())

	var results []insight.NarrativeResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "transit_routes", results[0].MetricID)
	assert.Equal(t, "population_density", results[1].MetricID)
}

func TestRender_Formats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runDemo(&buf))
	assert.Contains(t, buf.String(), "ranking 6 of 9")
	assert.Contains(t, buf.String(), "scope: subset")

	result := insight.NarrativeResult{ID: "x", MetricID: "m", MetricName: "M"}
	for _, format := range []string{"json", "markdown", "html", "xlsx"} {
		data, err := render(format, result)
		require.NoError(t, err, format)
		assert.NotEmpty(t, data, format)
	}
	_, err := render("pdf", result)
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
}

func TestDemoFixture_MatchesSharedFixture(t *testing.T) {
	assert.Equal(t, testkit.TransitDataset(), demoDataset())
	assert.Equal(t, testkit.TransitMetric(), demoMetric())
}

func TestImportCommand_RejectsDatabaseSource(t *testing.T) {
	cmd := newImportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"transit", "--dataset", "other", "--metrics", catalogPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestRunCommand_StoredDatasetNeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := newRunCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"transit_routes", "--dataset", "transit", "--metrics", catalogPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
