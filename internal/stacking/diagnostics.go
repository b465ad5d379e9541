package stacking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CellBalance summarizes one (sub-experiment, event-time) cell of a weighted
// stack: group sizes, weight mass, and weighted outcome moments. It is a
// descriptive diagnostic for judging compositional balance before the stack is
// handed to the regression collaborator; it computes no treatment-effect
// coefficients.
type CellBalance struct {
	SubExperiment int `json:"sub_exp"`
	EventTime     int `json:"event_time"`

	TreatedN int `json:"treated_n"`
	ControlN int `json:"control_n"`

	// ControlWeight is the total stack weight carried by the cell's control
	// rows. Summed across sub-experiments at a fixed event time it recovers
	// the slice's control count: the shares partition the total.
	ControlWeight float64 `json:"control_weight"`

	TreatedMean   float64 `json:"treated_mean"`
	TreatedStdDev float64 `json:"treated_std_dev"`
	ControlMean   float64 `json:"control_mean"`
	ControlStdDev float64 `json:"control_std_dev"`
}

// Diagnose computes per-cell balance summaries for a weighted stack, ordered
// by sub-experiment then event time. Control moments are weighted by the stack
// weight; treated rows all carry weight 1, so their moments are unweighted.
func Diagnose(ctx context.Context, stack []StackedObservation, logger *slog.Logger) ([]CellBalance, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(stack) == 0 {
		return nil, fmt.Errorf("no stacked data provided")
	}

	type cellRows struct {
		treatedOutcomes []float64
		controlOutcomes []float64
		controlWeights  []float64
	}

	byCell := make(map[cellKey]*cellRows)
	for _, row := range stack {
		key := cellKey{SubExperiment: row.SubExperiment, EventTime: row.EventTime}
		cell, ok := byCell[key]
		if !ok {
			cell = &cellRows{}
			byCell[key] = cell
		}
		if row.Treated == 1 {
			cell.treatedOutcomes = append(cell.treatedOutcomes, row.Outcome)
		} else {
			cell.controlOutcomes = append(cell.controlOutcomes, row.Outcome)
			cell.controlWeights = append(cell.controlWeights, row.Weight)
		}
	}

	balances := make([]CellBalance, 0, len(byCell))
	for key, cell := range byCell {
		b := CellBalance{
			SubExperiment: key.SubExperiment,
			EventTime:     key.EventTime,
			TreatedN:      len(cell.treatedOutcomes),
			ControlN:      len(cell.controlOutcomes),
		}

		for _, w := range cell.controlWeights {
			b.ControlWeight += w
		}

		if len(cell.treatedOutcomes) > 0 {
			b.TreatedMean = stat.Mean(cell.treatedOutcomes, nil)
		}
		if len(cell.treatedOutcomes) > 1 {
			b.TreatedStdDev = stat.StdDev(cell.treatedOutcomes, nil)
		}
		if len(cell.controlOutcomes) > 0 {
			b.ControlMean = stat.Mean(cell.controlOutcomes, cell.controlWeights)
		}
		if len(cell.controlOutcomes) > 1 {
			b.ControlStdDev = stat.StdDev(cell.controlOutcomes, cell.controlWeights)
		}

		balances = append(balances, b)
	}

	sort.Slice(balances, func(i, j int) bool {
		if balances[i].SubExperiment != balances[j].SubExperiment {
			return balances[i].SubExperiment < balances[j].SubExperiment
		}
		return balances[i].EventTime < balances[j].EventTime
	})

	logger.DebugContext(ctx, "computed stack diagnostics",
		slog.Int("cells", len(balances)),
	)

	return balances, nil
}
