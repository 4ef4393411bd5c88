package excel

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/xuri/excelize/v2"

	"goinsight/domain/insight"
	"goinsight/internal/errors"
)

const (
	narrativeSheet = "Narrative"
	evidenceSheet  = "Evidence"
)

// evidenceColumns is the fixed column order of the evidence sheet
var evidenceColumns = []string{
	"group", "value", "reference", "arithmetic_mean", "rank", "n", "percentile",
	"pct_vs_reference", "classification", "lowest_group", "lowest_value",
	"covariate", "method", "coefficient", "p_value", "sample_size", "effect_size",
	"side", "next_group", "next_value", "outlier_ratio", "cv", "gini",
	"units_needed", "cost_pv", "benefit_pv", "benefit_cost_ratio", "bcr_band",
	"discount_rate", "horizon_years",
}

// WriteResult writes a narrative result as a two-sheet workbook: the rendered
// narrative and the per-rule evidence audit.
func WriteResult(w io.Writer, result insight.NarrativeResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", narrativeSheet); err != nil {
		return errors.Wrap(err, "failed to prepare workbook")
	}
	if _, err := f.NewSheet(evidenceSheet); err != nil {
		return errors.Wrap(err, "failed to prepare workbook")
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}

	if err := writeNarrative(f, result, header); err != nil {
		return err
	}
	if err := writeEvidence(f, result, header); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	log.Printf("[ResultWriter] Wrote workbook for %s (%d insights, %d evidence records)",
		result.MetricID, len(result.Insights), len(result.Evidence))
	return nil
}

func writeNarrative(f *excelize.File, result insight.NarrativeResult, header int) error {
	rows := [][]any{
		{"Metric", result.MetricName},
		{"Unit", result.Unit},
		{"Scope", string(result.Context.Scope)},
		{"Filters", filtersText(result.Context.Filters)},
		{"Summary", result.Summary},
		{"Key finding", result.KeyFinding},
		{"Recommendation", result.Recommendation},
		{},
		{"Rule", "Category", "Severity", "Priority", "Text", "Recommendation"},
	}
	for _, in := range result.Insights {
		rows = append(rows, []any{string(in.RuleID), string(in.Category), string(in.Severity), in.Priority, in.Text, in.Recommendation})
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(narrativeSheet, cell, &row); err != nil {
			return errors.Wrap(err, "failed to write narrative row")
		}
	}
	if err := f.SetCellStyle(narrativeSheet, "A1", "A7", header); err != nil {
		return errors.Wrap(err, "failed to style narrative sheet")
	}
	if err := f.SetCellStyle(narrativeSheet, "A9", "F9", header); err != nil {
		return errors.Wrap(err, "failed to style narrative sheet")
	}
	if err := f.SetColWidth(narrativeSheet, "B", "B", 18); err != nil {
		return errors.Wrap(err, "failed to size narrative sheet")
	}
	if err := f.SetColWidth(narrativeSheet, "E", "F", 80); err != nil {
		return errors.Wrap(err, "failed to size narrative sheet")
	}
	return nil
}

func writeEvidence(f *excelize.File, result insight.NarrativeResult, header int) error {
	head := []any{"rule_id", "outcome", "code", "reason", "status"}
	for _, c := range evidenceColumns {
		head = append(head, c)
	}
	if err := f.SetSheetRow(evidenceSheet, "A1", &head); err != nil {
		return errors.Wrap(err, "failed to write evidence header")
	}
	last, _ := excelize.CoordinatesToCellName(len(head), 1)
	if err := f.SetCellStyle(evidenceSheet, "A1", last, header); err != nil {
		return errors.Wrap(err, "failed to style evidence sheet")
	}

	ids := make([]string, 0, len(result.Evidence))
	for id := range result.Evidence {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i, id := range ids {
		rec := result.Evidence[id]
		row := []any{id, string(rec.Outcome), rec.Code, rec.Reason}
		if rec.Evidence != nil {
			row = append(row, string(rec.Evidence.Status))
			fields := rec.Evidence.Fields()
			for _, c := range evidenceColumns {
				row = append(row, fields[c])
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(evidenceSheet, cell, &row); err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to write evidence for %s", id))
		}
	}
	return nil
}

func filtersText(f insight.Filters) string {
	text := f.Describe()
	if len(f.Entities) > 0 {
		entities := fmt.Sprintf("entities=%v", f.Entities)
		if text == "" {
			return entities
		}
		return entities + ", " + text
	}
	return text
}
