package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackdid/internal/panelio"
	"stackdid/internal/stacking"
)

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteStack(t *testing.T) {
	stack := []stacking.StackedObservation{
		{
			Observation: stacking.Observation{
				Unit:     "AL",
				Time:     2014,
				Outcome:  10.5,
				Adoption: stacking.AdoptedAt(2014),
			},
			SubExperiment: 2014,
			EventTime:     0,
			Treated:       1,
			Post:          1,
			Feasible:      true,
			Weight:        1,
		},
		{
			Observation: stacking.Observation{
				Unit:     "WY",
				Time:     2014,
				Outcome:  9.5,
				Adoption: stacking.NeverAdopted(),
			},
			SubExperiment: 2014,
			EventTime:     0,
			Treated:       0,
			Post:          1,
			Feasible:      true,
			Weight:        2,
		},
	}

	t.Run("default column names", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "stack.csv")
		writer := NewCSVWriter(panelio.FieldMap{})
		require.NoError(t, writer.WriteStack(path, stack))

		records := readCSVFile(t, path)
		require.Len(t, records, 3)
		assert.Equal(t, []string{
			"unit_id", "time", "outcome", "adoption_time",
			"sub_exp", "event_time", "treat", "post", "stack_weight",
		}, records[0])
		assert.Equal(t, []string{"AL", "2014", "10.5", "2014", "2014", "0", "1", "1", "1"}, records[1])

		// Never-adopted leaves the adoption cell empty.
		assert.Equal(t, []string{"WY", "2014", "9.5", "", "2014", "0", "0", "1", "2"}, records[2])
	})

	t.Run("custom column names", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stack.csv")
		writer := NewCSVWriter(panelio.FieldMap{Unit: "state", Weight: "w"})
		require.NoError(t, writer.WriteStack(path, stack))

		records := readCSVFile(t, path)
		assert.Equal(t, "state", records[0][0])
		assert.Equal(t, "w", records[0][8])
	})

	t.Run("BOM prefix", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stack.csv")
		writer := NewCSVWriter(panelio.FieldMap{})
		require.NoError(t, writer.WriteStack(path, stack))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))
	})
}

func TestWriteDiagnostics(t *testing.T) {
	balances := []stacking.CellBalance{
		{
			SubExperiment: 2014,
			EventTime:     -1,
			TreatedN:      28,
			ControlN:      18,
			ControlWeight: 18,
			TreatedMean:   10.5,
			ControlMean:   9.25,
		},
	}

	path := filepath.Join(t.TempDir(), "diagnostics.csv")
	writer := NewCSVWriter(panelio.FieldMap{})
	require.NoError(t, writer.WriteDiagnostics(path, balances))

	records := readCSVFile(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "sub_exp", records[0][0])
	assert.Equal(t, []string{"2014", "-1", "28", "18", "18", "10.5", "0", "9.25", "0"}, records[1])
}
