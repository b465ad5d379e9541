package panelio

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"stackdid/internal/stacking"
)

// ReadXLSXFile reads a long-format panel from the named sheet of an Excel
// workbook. An empty sheet name selects the workbook's first sheet. Rows are
// parsed by the same record parser as CSV input, so the field selectors and
// panel invariants behave identically across formats.
func ReadXLSXFile(path, sheet string, fields FieldMap) ([]stacking.Observation, error) {
	fields.Normalize()

	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	if sheet == "" {
		sheet = workbook.GetSheetName(0)
	}

	records, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	// GetRows drops trailing empty cells, which a never-adopted unit leaves
	// in the adoption column; pad records back to the header width.
	if len(records) > 0 {
		width := len(records[0])
		for i, record := range records {
			for len(record) < width {
				record = append(record, "")
			}
			records[i] = record
		}
	}

	panel, err := parseRecords(records, fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	slog.Debug("loaded panel from workbook",
		slog.String("path", path),
		slog.String("sheet", sheet),
		slog.Int("rows", len(panel)),
	)

	return panel, nil
}
