package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is the tabular content shared by all exporters. Row values are
// keyed by header name; missing keys render as empty cells.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

func (d Dataset) records() [][]string {
	out := make([][]string, 0, len(d.Rows)+1)
	out = append(out, d.Headers)
	for _, row := range d.Rows {
		rec := make([]string, len(d.Headers))
		for i, h := range d.Headers {
			rec[i] = row[h]
		}
		out = append(out, rec)
	}
	return out
}

// CSVExporter renders a Dataset as RFC 4180 CSV bytes.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the dataset, headers first.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(data.records()); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
