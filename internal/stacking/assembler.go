package stacking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency bounds the worker pool used for parallel
// sub-experiment builds.
const DefaultMaxConcurrency = 4

// Assembler builds every sub-experiment present in a panel and concatenates
// the feasible ones into the stack.
type Assembler struct {
	builder        *Builder
	logger         *slog.Logger
	maxConcurrency int
}

// NewAssembler creates a stack assembler around the given builder.
func NewAssembler(builder *Builder, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		builder:        builder,
		logger:         logger,
		maxConcurrency: DefaultMaxConcurrency,
	}
}

// SetMaxConcurrency bounds the number of sub-experiments built in parallel.
// Values below 1 are ignored.
func (a *Assembler) SetMaxConcurrency(n int) {
	if n >= 1 {
		a.maxConcurrency = n
	}
}

// Assemble discovers the distinct adoption events in the panel, builds one
// sub-experiment per event, concatenates the results in ascending event order,
// and drops every row of infeasible sub-experiments.
//
// Builds for distinct events are independent reads of the same panel, so they
// run on a bounded worker pool; the concatenation order is fixed by the sorted
// event list, not by completion order. Assemble fails with *NoEventsError when
// the panel has no adoption events, with *EmptyResultError when every
// sub-experiment is infeasible, and otherwise propagates the first Builder
// error.
func (a *Assembler) Assemble(ctx context.Context, panel []Observation) ([]StackedObservation, error) {
	if len(panel) == 0 {
		return nil, fmt.Errorf("no panel data provided")
	}

	events := adoptionEvents(panel)
	if len(events) == 0 {
		return nil, &NoEventsError{}
	}

	a.logger.InfoContext(ctx, "assembling stack",
		slog.Int("panel_rows", len(panel)),
		slog.Int("adoption_events", len(events)),
		slog.Int("window_pre", a.builder.Window().Pre),
		slog.Int("window_post", a.builder.Window().Post),
	)

	results := make([][]StackedObservation, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrency)
	for i, focal := range events {
		g.Go(func() error {
			rows, err := a.builder.Build(gctx, panel, focal)
			if err != nil {
				return fmt.Errorf("build sub-experiment %d: %w", focal, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var stack []StackedObservation
	infeasible := 0
	for i, rows := range results {
		if len(rows) > 0 && !rows[0].Feasible {
			// Infeasibility is shared by every row of the sub-experiment.
			infeasible++
			a.logger.WarnContext(ctx, "dropping infeasible sub-experiment",
				slog.Int("focal_adoption_time", events[i]),
				slog.Int("rows_dropped", len(rows)),
			)
			continue
		}
		stack = append(stack, rows...)
	}

	if len(stack) == 0 {
		return nil, &EmptyResultError{}
	}

	a.logger.InfoContext(ctx, "stack assembled",
		slog.Int("stack_rows", len(stack)),
		slog.Int("sub_experiments", len(events)-infeasible),
		slog.Int("infeasible_dropped", infeasible),
	)

	return stack, nil
}

// IsEmptyResult reports whether err is an empty-result failure from a build or
// an assembled stack with every sub-experiment infeasible.
func IsEmptyResult(err error) bool {
	var empty *EmptyResultError
	return errors.As(err, &empty)
}

// adoptionEvents returns the distinct finite adoption times in the panel,
// ascending.
func adoptionEvents(panel []Observation) []int {
	seen := make(map[int]struct{})
	for _, obs := range panel {
		if p, ok := obs.Adoption.Period(); ok {
			seen[p] = struct{}{}
		}
	}

	events := make([]int, 0, len(seen))
	for p := range seen {
		events = append(events, p)
	}
	sort.Ints(events)
	return events
}
