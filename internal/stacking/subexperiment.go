package stacking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Builder constructs one treated/control sub-experiment around a focal
// adoption time.
type Builder struct {
	window Window
	logger *slog.Logger
}

// NewBuilder creates a sub-experiment builder for the given event window.
func NewBuilder(window Window, logger *slog.Logger) (*Builder, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{window: window, logger: logger}, nil
}

// Window returns the builder's event window.
func (b *Builder) Window() Window {
	return b.window
}

// Build extracts the sub-experiment for the given focal adoption time.
//
// Row selection follows the clean-control rule: a row is retained when its
// unit adopts exactly at the focal time (the treated cohort), adopts strictly
// after the post window closes, or never adopts. Units whose adoption falls
// inside (focal, focal+post] would turn treated before the window closes and
// are dropped entirely. Retained rows are then trimmed to the closed period
// range [focal-pre, focal+post].
//
// Every returned row carries the derived treat/post/event-time columns, the
// sub-experiment stamp, and the shared feasibility flag: the sub-experiment is
// feasible only when its full window lies inside the panel's observed calendar
// range.
//
// The input panel is never mutated. Build fails with *EmptyResultError when no
// rows survive filtering.
func (b *Builder) Build(ctx context.Context, panel []Observation, focal int) ([]StackedObservation, error) {
	if len(panel) == 0 {
		return nil, fmt.Errorf("no panel data provided")
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("sub-experiment build cancelled: %w", ctx.Err())
	default:
	}

	// The global calendar range must come from the unfiltered panel.
	r := panelTimeRange(panel)

	windowStart := focal - b.window.Pre
	windowEnd := focal + b.window.Post
	feasible := windowStart >= r.min && windowEnd <= r.max

	rows := make([]StackedObservation, 0, len(panel))
	for _, obs := range panel {
		if !obs.Adoption.Is(focal) && !obs.Adoption.After(windowEnd) {
			continue // adoption inside (focal, focal+post]: not a clean control
		}
		if obs.Time < windowStart || obs.Time > windowEnd {
			continue
		}

		row := StackedObservation{
			Observation:   obs,
			SubExperiment: focal,
			EventTime:     obs.Time - focal,
			Feasible:      feasible,
		}
		if obs.Adoption.Is(focal) {
			row.Treated = 1
		}
		if obs.Time >= focal {
			row.Post = 1
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		f := focal
		return nil, &EmptyResultError{Focal: &f}
	}

	// Stable row order for reproducibility.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Unit != rows[j].Unit {
			return rows[i].Unit < rows[j].Unit
		}
		return rows[i].Time < rows[j].Time
	})

	b.logger.DebugContext(ctx, "built sub-experiment",
		slog.Int("focal_adoption_time", focal),
		slog.Int("rows", len(rows)),
		slog.Bool("feasible", feasible),
	)

	return rows, nil
}
