package excel

import "goinsight/domain/insight"

// RawRowData represents a row of raw spreadsheet data as string key-value pairs
type RawRowData map[string]string

// ExcelData represents the complete spreadsheet dataset
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// Dataset converts the raw cells into an insight dataset. Numeric-looking
// cells become values; every cell stays available as an attribute.
func (d *ExcelData) Dataset() insight.Dataset {
	records := make([]map[string]any, len(d.Rows))
	for i, row := range d.Rows {
		rec := make(map[string]any, len(row))
		for k, v := range row {
			rec[k] = v
		}
		records[i] = rec
	}
	return insight.NewDataset(d.Headers, records)
}
