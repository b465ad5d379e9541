package stacking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// cellKey identifies one (sub-experiment, event-time) cell of the stack.
type cellKey struct {
	SubExperiment int
	EventTime     int
}

// sliceCounts holds treated/control row counts for one event-time slice of
// the whole stack.
type sliceCounts struct {
	TreatN   int
	ControlN int
}

// cellCounts holds treated/control row counts for one
// (sub-experiment, event-time) cell.
type cellCounts struct {
	TreatN   int
	ControlN int
}

// ComputeWeights annotates the stack with corrective sample weights.
//
// Within each event-time slice, a sub-experiment's control rows are rescaled
// by subTreatShare/subControlShare so that the sub-experiment's control
// contribution matches its share of treated units in the slice. Treated rows
// always receive weight 1.
//
// Aggregation runs in two strict passes: slice totals over the entire stack
// and per-cell counts are both completed before any weight is assigned,
// because each weight is a ratio of a cell-level share to a stack-level total.
// Computing the denominators sub-experiment by sub-experiment would yield
// locally-normalized shares and silently wrong weights.
//
// The input stack is never mutated; the annotated rows are returned as a new
// slice. ComputeWeights fails with *DegenerateWeightError on the first cell
// whose share computation has a zero denominator.
func ComputeWeights(ctx context.Context, stack []StackedObservation, logger *slog.Logger) ([]StackedObservation, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(stack) == 0 {
		return nil, fmt.Errorf("no stacked data provided")
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("weight computation cancelled: %w", ctx.Err())
	default:
	}

	// Read pass: stack-wide slice totals, then per-cell counts.
	slices := make(map[int]sliceCounts)
	cells := make(map[cellKey]cellCounts)
	for _, row := range stack {
		s := slices[row.EventTime]
		c := cells[cellKey{SubExperiment: row.SubExperiment, EventTime: row.EventTime}]
		if row.Treated == 1 {
			s.TreatN++
			c.TreatN++
		} else {
			s.ControlN++
			c.ControlN++
		}
		slices[row.EventTime] = s
		cells[cellKey{SubExperiment: row.SubExperiment, EventTime: row.EventTime}] = c
	}

	// Validate denominators before assigning anything; keys sorted so the
	// reported failure is deterministic.
	if err := validateDenominators(slices, cells); err != nil {
		return nil, err
	}

	// Write pass: broadcast the share ratio onto every row of each cell.
	weighted := make([]StackedObservation, len(stack))
	for i, row := range stack {
		weighted[i] = row
		if row.Treated == 1 {
			weighted[i].Weight = 1
			continue
		}

		s := slices[row.EventTime]
		c := cells[cellKey{SubExperiment: row.SubExperiment, EventTime: row.EventTime}]
		treatShare := float64(c.TreatN) / float64(s.TreatN)
		controlShare := float64(c.ControlN) / float64(s.ControlN)
		weighted[i].Weight = treatShare / controlShare
	}

	logger.InfoContext(ctx, "computed stack weights",
		slog.Int("rows", len(weighted)),
		slog.Int("event_times", len(slices)),
		slog.Int("cells", len(cells)),
	)

	return weighted, nil
}

// validateDenominators rejects any event-time slice or cell whose share
// computation would divide by zero.
func validateDenominators(slices map[int]sliceCounts, cells map[cellKey]cellCounts) error {
	keys := make([]cellKey, 0, len(cells))
	for key := range cells {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SubExperiment != keys[j].SubExperiment {
			return keys[i].SubExperiment < keys[j].SubExperiment
		}
		return keys[i].EventTime < keys[j].EventTime
	})

	for _, key := range keys {
		c := cells[key]
		s := slices[key.EventTime]
		if s.TreatN == 0 {
			return &DegenerateWeightError{
				SubExperiment: key.SubExperiment,
				EventTime:     key.EventTime,
				Reason:        "event-time slice has no treated rows in the stack",
			}
		}
		if s.ControlN == 0 && c.ControlN > 0 {
			return &DegenerateWeightError{
				SubExperiment: key.SubExperiment,
				EventTime:     key.EventTime,
				Reason:        "cell has control rows but the event-time slice reports no controls",
			}
		}
		if s.ControlN == 0 {
			return &DegenerateWeightError{
				SubExperiment: key.SubExperiment,
				EventTime:     key.EventTime,
				Reason:        "event-time slice has no control rows in the stack",
			}
		}
	}

	return nil
}
