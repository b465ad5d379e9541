package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"stackdid/internal/panelio"
	"stackdid/internal/stacking"
)

// CSVWriter writes stacking artifacts as CSV files.
type CSVWriter struct {
	fields panelio.FieldMap

	// BOMPrefix adds a UTF-8 BOM so Excel recognizes the encoding.
	BOMPrefix bool
}

// NewCSVWriter creates a CSV writer using the given output column names.
func NewCSVWriter(fields panelio.FieldMap) *CSVWriter {
	fields.Normalize()
	return &CSVWriter{fields: fields, BOMPrefix: true}
}

// WriteStack writes the stacked, weighted dataset to filePath, creating
// parent directories as needed. Boolean indicator columns are written as 0/1
// and a never-adopted unit leaves its adoption cell empty.
func (w *CSVWriter) WriteStack(filePath string, stack []stacking.StackedObservation) error {
	headers := []string{
		w.fields.Unit,
		w.fields.Time,
		w.fields.Outcome,
		w.fields.Adoption,
		w.fields.SubExperiment,
		w.fields.EventTime,
		w.fields.Treated,
		w.fields.Post,
		w.fields.Weight,
	}

	records := make([][]string, 0, len(stack))
	for _, row := range stack {
		adoption := ""
		if p, ok := row.Adoption.Period(); ok {
			adoption = strconv.Itoa(p)
		}

		records = append(records, []string{
			row.Unit,
			strconv.Itoa(row.Time),
			formatFloat(row.Outcome),
			adoption,
			strconv.Itoa(row.SubExperiment),
			strconv.Itoa(row.EventTime),
			strconv.Itoa(row.Treated),
			strconv.Itoa(row.Post),
			formatFloat(row.Weight),
		})
	}

	return w.write(filePath, headers, records)
}

// WriteDiagnostics writes per-cell balance summaries to filePath.
func (w *CSVWriter) WriteDiagnostics(filePath string, balances []stacking.CellBalance) error {
	headers := []string{
		w.fields.SubExperiment,
		w.fields.EventTime,
		"treated_n",
		"control_n",
		"control_weight",
		"treated_mean",
		"treated_std_dev",
		"control_mean",
		"control_std_dev",
	}

	records := make([][]string, 0, len(balances))
	for _, b := range balances {
		records = append(records, []string{
			strconv.Itoa(b.SubExperiment),
			strconv.Itoa(b.EventTime),
			strconv.Itoa(b.TreatedN),
			strconv.Itoa(b.ControlN),
			formatFloat(b.ControlWeight),
			formatFloat(b.TreatedMean),
			formatFloat(b.TreatedStdDev),
			formatFloat(b.ControlMean),
			formatFloat(b.ControlStdDev),
		})
	}

	return w.write(filePath, headers, records)
}

// write creates the file and streams headers plus records through a CSV
// writer.
func (w *CSVWriter) write(filePath string, headers []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	if w.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	if err := writer.Error(); err != nil {
		return err
	}

	slog.Info("wrote CSV file",
		slog.String("path", filePath),
		slog.Int("records", len(records)),
	)

	return nil
}

// formatFloat renders a float without trailing zeros.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
