package stacking

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stackRow builds a minimal stacked observation for weight tests.
func stackRow(subExp, eventTime, treated int) StackedObservation {
	return StackedObservation{
		Observation: Observation{
			Unit:    "u",
			Time:    subExp + eventTime,
			Outcome: 1.0,
		},
		SubExperiment: subExp,
		EventTime:     eventTime,
		Treated:       treated,
		Feasible:      true,
	}
}

func repeatRows(n int, row StackedObservation) []StackedObservation {
	rows := make([]StackedObservation, n)
	for i := range rows {
		rows[i] = row
	}
	return rows
}

func TestComputeWeights(t *testing.T) {
	ctx := context.Background()

	t.Run("treated rows always weight one", func(t *testing.T) {
		var stack []StackedObservation
		stack = append(stack, repeatRows(4, stackRow(2014, 0, 1))...)
		stack = append(stack, repeatRows(4, stackRow(2014, 0, 0))...)
		stack = append(stack, repeatRows(2, stackRow(2016, 0, 1))...)
		stack = append(stack, repeatRows(6, stackRow(2016, 0, 0))...)

		weighted, err := ComputeWeights(ctx, stack, slog.Default())
		require.NoError(t, err)

		for _, row := range weighted {
			if row.Treated == 1 {
				assert.Equal(t, 1.0, row.Weight)
			}
		}
	})

	t.Run("share ratio scenario", func(t *testing.T) {
		// At event time 0: sub-experiment A holds 2 of 4 treated rows
		// (subTreatShare 0.5) and 1 of 4 control rows (subControlShare 0.25),
		// so its controls are scaled by 2.0.
		var stack []StackedObservation
		stack = append(stack, repeatRows(2, stackRow(2014, 0, 1))...)
		stack = append(stack, repeatRows(1, stackRow(2014, 0, 0))...)
		stack = append(stack, repeatRows(2, stackRow(2016, 0, 1))...)
		stack = append(stack, repeatRows(3, stackRow(2016, 0, 0))...)

		weighted, err := ComputeWeights(ctx, stack, slog.Default())
		require.NoError(t, err)

		for _, row := range weighted {
			if row.Treated == 1 {
				continue
			}
			switch row.SubExperiment {
			case 2014:
				assert.InDelta(t, 2.0, row.Weight, 1e-12)
			case 2016:
				// subTreatShare 0.5 over subControlShare 0.75.
				assert.InDelta(t, 0.5/0.75, row.Weight, 1e-12)
			}
		}
	})

	t.Run("denominators are stack totals", func(t *testing.T) {
		// A small sub-experiment next to a large one. Normalizing within each
		// sub-experiment would give every control weight 1; the correct
		// stack-wide shares do not.
		var stack []StackedObservation
		stack = append(stack, repeatRows(9, stackRow(2014, 1, 1))...)
		stack = append(stack, repeatRows(3, stackRow(2014, 1, 0))...)
		stack = append(stack, repeatRows(1, stackRow(2017, 1, 1))...)
		stack = append(stack, repeatRows(7, stackRow(2017, 1, 0))...)

		weighted, err := ComputeWeights(ctx, stack, slog.Default())
		require.NoError(t, err)

		// stackTreatN=10, stackControlN=10.
		for _, row := range weighted {
			if row.Treated == 1 {
				continue
			}
			switch row.SubExperiment {
			case 2014:
				assert.InDelta(t, (9.0/10.0)/(3.0/10.0), row.Weight, 1e-12)
			case 2017:
				assert.InDelta(t, (1.0/10.0)/(7.0/10.0), row.Weight, 1e-12)
			}
			assert.NotEqual(t, 1.0, row.Weight)
		}
	})

	t.Run("conservation per event time", func(t *testing.T) {
		var stack []StackedObservation
		stack = append(stack, repeatRows(5, stackRow(2014, -1, 1))...)
		stack = append(stack, repeatRows(2, stackRow(2014, -1, 0))...)
		stack = append(stack, repeatRows(3, stackRow(2015, -1, 1))...)
		stack = append(stack, repeatRows(6, stackRow(2015, -1, 0))...)

		weighted, err := ComputeWeights(ctx, stack, slog.Default())
		require.NoError(t, err)

		var mass float64
		var controls int
		for _, row := range weighted {
			if row.Treated == 0 {
				mass += row.Weight
				controls++
			}
		}
		assert.InDelta(t, float64(controls), mass, 1e-9)
	})

	t.Run("no treated rows in slice", func(t *testing.T) {
		var stack []StackedObservation
		stack = append(stack, repeatRows(2, stackRow(2014, 0, 1))...)
		stack = append(stack, repeatRows(2, stackRow(2014, 0, 0))...)
		// Event time 5 exists in the stack with controls only.
		stack = append(stack, repeatRows(2, stackRow(2014, 5, 0))...)

		_, err := ComputeWeights(ctx, stack, slog.Default())
		var degenerate *DegenerateWeightError
		require.ErrorAs(t, err, &degenerate)
		assert.Equal(t, 2014, degenerate.SubExperiment)
		assert.Equal(t, 5, degenerate.EventTime)
	})

	t.Run("no control rows in slice", func(t *testing.T) {
		var stack []StackedObservation
		stack = append(stack, repeatRows(2, stackRow(2014, 0, 1))...)
		stack = append(stack, repeatRows(2, stackRow(2014, 0, 0))...)
		// Event time 2 exists in the stack with treated rows only.
		stack = append(stack, repeatRows(3, stackRow(2014, 2, 1))...)

		_, err := ComputeWeights(ctx, stack, slog.Default())
		var degenerate *DegenerateWeightError
		require.ErrorAs(t, err, &degenerate)
		assert.Equal(t, 2014, degenerate.SubExperiment)
		assert.Equal(t, 2, degenerate.EventTime)
	})

	t.Run("failure reports first cell by key order", func(t *testing.T) {
		var stack []StackedObservation
		stack = append(stack, repeatRows(2, stackRow(2016, 3, 0))...)
		stack = append(stack, repeatRows(2, stackRow(2014, 3, 0))...)

		_, err := ComputeWeights(ctx, stack, slog.Default())
		var degenerate *DegenerateWeightError
		require.ErrorAs(t, err, &degenerate)
		assert.Equal(t, 2014, degenerate.SubExperiment)
		assert.Equal(t, 3, degenerate.EventTime)
	})

	t.Run("input stack not mutated", func(t *testing.T) {
		var stack []StackedObservation
		stack = append(stack, repeatRows(2, stackRow(2014, 0, 1))...)
		stack = append(stack, repeatRows(2, stackRow(2014, 0, 0))...)
		snapshot := make([]StackedObservation, len(stack))
		copy(snapshot, stack)

		weighted, err := ComputeWeights(ctx, stack, slog.Default())
		require.NoError(t, err)
		assert.Equal(t, snapshot, stack)

		// Weighted rows live in a new slice.
		weighted[0].Weight = 99
		assert.Equal(t, snapshot, stack)
	})

	t.Run("empty stack rejected", func(t *testing.T) {
		_, err := ComputeWeights(ctx, nil, slog.Default())
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		stack := repeatRows(2, stackRow(2014, 0, 1))
		_, err := ComputeWeights(cancelled, stack, slog.Default())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
