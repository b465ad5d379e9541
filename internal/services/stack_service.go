// Package services orchestrates the stacking pipeline behind the transport
// layer: request validation, DTO mapping, assembly, weighting and
// diagnostics.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"stackdid/internal/infrastructure"
	"stackdid/internal/stacking"
)

// PanelRow is the wire representation of one panel observation. A nil
// adoption time marks a never-treated unit.
type PanelRow struct {
	Unit     string  `json:"unit" validate:"required"`
	Time     int     `json:"time"`
	Outcome  float64 `json:"outcome"`
	Adoption *int    `json:"adoption_time"`
}

// StackRequest is the payload of a stack-construction call.
type StackRequest struct {
	Panel     []PanelRow `json:"panel" validate:"required,min=1,dive"`
	KappaPre  *int       `json:"kappa_pre" validate:"required,min=0"`
	KappaPost *int       `json:"kappa_post" validate:"required,min=0"`
}

// StackedRow is the wire representation of one weighted stack row.
type StackedRow struct {
	Unit          string  `json:"unit"`
	Time          int     `json:"time"`
	Outcome       float64 `json:"outcome"`
	Adoption      *int    `json:"adoption_time"`
	SubExperiment int     `json:"sub_exp"`
	EventTime     int     `json:"event_time"`
	Treated       int     `json:"treat"`
	Post          int     `json:"post"`
	Weight        float64 `json:"stack_weight"`
}

// StackResponse carries the weighted stack and its balance diagnostics.
type StackResponse struct {
	Rows           []StackedRow           `json:"rows"`
	Diagnostics    []stacking.CellBalance `json:"diagnostics"`
	SubExperiments int                    `json:"sub_experiments"`
	DurationMS     int64                  `json:"duration_ms"`
}

// StackService runs the full stack-construction pipeline.
type StackService struct {
	logger   *slog.Logger
	validate *validator.Validate
	metrics  *infrastructure.Metrics

	maxConcurrency int
}

// NewStackService creates a stack service. Metrics may be nil in tests and
// the CLI.
func NewStackService(logger *slog.Logger, metrics *infrastructure.Metrics, maxConcurrency int) *StackService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StackService{
		logger:         logger.With(slog.String("service", "stack")),
		validate:       validator.New(),
		metrics:        metrics,
		maxConcurrency: maxConcurrency,
	}
}

// BuildStack validates the request, assembles the stack, computes weights and
// diagnostics, and returns the wire response.
func (s *StackService) BuildStack(ctx context.Context, req *StackRequest) (*StackResponse, error) {
	start := time.Now()

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate request: %w", err)
	}

	panel := make([]stacking.Observation, len(req.Panel))
	for i, row := range req.Panel {
		adoption := stacking.NeverAdopted()
		if row.Adoption != nil {
			adoption = stacking.AdoptedAt(*row.Adoption)
		}
		panel[i] = stacking.Observation{
			Unit:     row.Unit,
			Time:     row.Time,
			Outcome:  row.Outcome,
			Adoption: adoption,
		}
	}

	window := stacking.Window{Pre: *req.KappaPre, Post: *req.KappaPost}
	weighted, diagnostics, err := s.run(ctx, panel, window)
	if err != nil {
		if s.metrics != nil {
			s.metrics.StackFailures.Add(ctx, 1)
		}
		return nil, err
	}

	subExps := make(map[int]struct{})
	rows := make([]StackedRow, len(weighted))
	for i, row := range weighted {
		subExps[row.SubExperiment] = struct{}{}

		var adoption *int
		if p, ok := row.Adoption.Period(); ok {
			adoption = &p
		}
		rows[i] = StackedRow{
			Unit:          row.Unit,
			Time:          row.Time,
			Outcome:       row.Outcome,
			Adoption:      adoption,
			SubExperiment: row.SubExperiment,
			EventTime:     row.EventTime,
			Treated:       row.Treated,
			Post:          row.Post,
			Weight:        row.Weight,
		}
	}

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.StacksBuilt.Add(ctx, 1)
		s.metrics.RowsStacked.Add(ctx, int64(len(rows)))
		s.metrics.BuildDuration.Record(ctx, duration.Seconds())
	}

	s.logger.InfoContext(ctx, "stack built",
		slog.Int("panel_rows", len(panel)),
		slog.Int("stack_rows", len(rows)),
		slog.Int("sub_experiments", len(subExps)),
		slog.Duration("duration", duration),
	)

	return &StackResponse{
		Rows:           rows,
		Diagnostics:    diagnostics,
		SubExperiments: len(subExps),
		DurationMS:     duration.Milliseconds(),
	}, nil
}

// run executes assemble, weight and diagnose over a typed panel.
func (s *StackService) run(ctx context.Context, panel []stacking.Observation, window stacking.Window) ([]stacking.StackedObservation, []stacking.CellBalance, error) {
	builder, err := stacking.NewBuilder(window, s.logger)
	if err != nil {
		return nil, nil, err
	}

	assembler := stacking.NewAssembler(builder, s.logger)
	assembler.SetMaxConcurrency(s.maxConcurrency)

	stack, err := assembler.Assemble(ctx, panel)
	if err != nil {
		return nil, nil, err
	}

	weighted, err := stacking.ComputeWeights(ctx, stack, s.logger)
	if err != nil {
		return nil, nil, err
	}

	diagnostics, err := stacking.Diagnose(ctx, weighted, s.logger)
	if err != nil {
		return nil, nil, err
	}

	return weighted, diagnostics, nil
}
