package panelio

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"stackdid/internal/stacking"
)

// neverAdoptedMarkers are the adoption-cell values that mark a never-treated
// unit, compared case-insensitively. An empty cell counts as well.
var neverAdoptedMarkers = map[string]bool{
	"na":   true,
	"n/a":  true,
	"null": true,
	".":    true,
}

// columnIndexes holds the resolved positions of the four input selectors.
type columnIndexes struct {
	unit     int
	time     int
	outcome  int
	adoption int
}

// resolveColumns matches the FieldMap's input selectors against the header
// row. Matching is case-insensitive and ignores surrounding whitespace.
func resolveColumns(header []string, fields FieldMap) (columnIndexes, error) {
	byName := make(map[string]int, len(header))
	columns := make([]string, 0, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		byName[name] = i
		columns = append(columns, name)
	}

	resolve := func(field, selector string) (int, error) {
		idx, ok := byName[strings.ToLower(strings.TrimSpace(selector))]
		if !ok {
			return 0, &SchemaError{Field: field, Selector: selector, Columns: columns}
		}
		return idx, nil
	}

	var idx columnIndexes
	var err error
	if idx.unit, err = resolve("unit", fields.Unit); err != nil {
		return columnIndexes{}, err
	}
	if idx.time, err = resolve("time", fields.Time); err != nil {
		return columnIndexes{}, err
	}
	if idx.outcome, err = resolve("outcome", fields.Outcome); err != nil {
		return columnIndexes{}, err
	}
	if idx.adoption, err = resolve("adoption", fields.Adoption); err != nil {
		return columnIndexes{}, err
	}
	return idx, nil
}

// parseRecords turns header-plus-data records into panel observations,
// enforcing the panel invariants: one row per (unit, time) pair and a
// constant adoption time within each unit.
func parseRecords(records [][]string, fields FieldMap) ([]stacking.Observation, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("input table is empty")
	}

	idx, err := resolveColumns(records[0], fields)
	if err != nil {
		return nil, err
	}
	if len(records) == 1 {
		return nil, fmt.Errorf("input table contains only a header row")
	}

	type unitTime struct {
		unit string
		time int
	}
	seen := make(map[unitTime]bool)
	unitAdoption := make(map[string]stacking.AdoptionTime)

	panel := make([]stacking.Observation, 0, len(records)-1)
	for line, record := range records[1:] {
		obs, err := parseRecord(record, idx, line+2)
		if err != nil {
			return nil, err
		}

		key := unitTime{unit: obs.Unit, time: obs.Time}
		if seen[key] {
			return nil, fmt.Errorf("duplicate observation for unit %q at period %d (line %d)", obs.Unit, obs.Time, line+2)
		}
		seen[key] = true

		if prev, ok := unitAdoption[obs.Unit]; ok {
			if prev != obs.Adoption {
				return nil, fmt.Errorf("unit %q has inconsistent adoption times (line %d)", obs.Unit, line+2)
			}
		} else {
			unitAdoption[obs.Unit] = obs.Adoption
		}

		panel = append(panel, obs)
	}

	return panel, nil
}

// parseRecord parses one data record into an observation.
func parseRecord(record []string, idx columnIndexes, line int) (stacking.Observation, error) {
	max := idx.unit
	for _, i := range []int{idx.time, idx.outcome, idx.adoption} {
		if i > max {
			max = i
		}
	}
	if len(record) <= max {
		return stacking.Observation{}, fmt.Errorf("insufficient columns (line %d): expected at least %d, got %d", line, max+1, len(record))
	}

	unit := strings.TrimSpace(record[idx.unit])
	if unit == "" {
		return stacking.Observation{}, fmt.Errorf("empty unit id (line %d)", line)
	}

	period, err := strconv.Atoi(strings.TrimSpace(record[idx.time]))
	if err != nil {
		return stacking.Observation{}, fmt.Errorf("parse time (line %d): %w", line, err)
	}

	outcome, err := strconv.ParseFloat(strings.TrimSpace(record[idx.outcome]), 64)
	if err != nil {
		return stacking.Observation{}, fmt.Errorf("parse outcome (line %d): %w", line, err)
	}

	adoption, err := parseAdoption(record[idx.adoption], line)
	if err != nil {
		return stacking.Observation{}, err
	}

	return stacking.Observation{
		Unit:     unit,
		Time:     period,
		Outcome:  outcome,
		Adoption: adoption,
	}, nil
}

// parseAdoption parses an adoption cell, treating the never-adopted markers
// and empty cells as never-treated.
func parseAdoption(cell string, line int) (stacking.AdoptionTime, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || neverAdoptedMarkers[strings.ToLower(cell)] {
		return stacking.NeverAdopted(), nil
	}

	period, err := strconv.Atoi(cell)
	if err != nil {
		return stacking.AdoptionTime{}, fmt.Errorf("parse adoption time (line %d): %w", line, err)
	}
	return stacking.AdoptedAt(period), nil
}

// ReadCSV reads a long-format panel from r using the given field selectors.
func ReadCSV(r io.Reader, fields FieldMap) ([]stacking.Observation, error) {
	fields.Normalize()

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV records: %w", err)
	}

	return parseRecords(records, fields)
}

// ReadCSVFile reads a long-format panel from the CSV file at path.
func ReadCSVFile(path string, fields FieldMap) ([]stacking.Observation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	panel, err := ReadCSV(file, fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	slog.Debug("loaded panel from CSV",
		slog.String("path", path),
		slog.Int("rows", len(panel)),
	)

	return panel, nil
}
