// Package stacking implements the data-construction core of a stacked
// difference-in-differences estimator for panels with staggered treatment
// adoption.
//
// Given a long panel of (unit, time) observations where each unit carries an
// adoption time (the period its treatment begins, or never), the package
// builds one matched treated/control sub-experiment per adoption cohort,
// concatenates the feasible sub-experiments into a single stack, and computes
// per-row corrective weights so that a pooled regression on the stack recovers
// an unbiased average treatment effect.
//
// # Components
//
//   - types.go: core data structures (Observation, AdoptionTime, StackedObservation, Window)
//   - errors.go: typed error kinds for each failure mode
//   - subexperiment.go: Builder, one sub-experiment per focal adoption time
//   - assembler.go: Assembler, cohort discovery, concatenation and feasibility filtering
//   - weights.go: ComputeWeights, share-based corrective weighting
//   - diagnostics.go: per-cell balance summaries for the assembled stack
//
// # Usage Example
//
//	builder, err := stacking.NewBuilder(stacking.Window{Pre: 3, Post: 2}, slog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	assembler := stacking.NewAssembler(builder, slog.Default())
//	stack, err := assembler.Assemble(ctx, panel)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	weighted, err := stacking.ComputeWeights(ctx, stack, slog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The weighted stack is handed to an external regression collaborator, which
// is expected to regress the outcome on treatment-by-event-time interactions,
// absorb treat and event-time fixed effects, cluster standard errors by unit,
// weight observations by the stack weight, and use event time -1 as the
// omitted reference category. Coefficient and standard-error computation is
// deliberately outside this package.
//
// # Weighting Scheme
//
// Within each event-time slice of the stack, each sub-experiment's control
// group is rescaled so its contribution matches the sub-experiment's share of
// treated units in that slice:
//
//	weight(control row) = subTreatShare / subControlShare
//	subTreatShare   = subTreatN / stackTreatN
//	subControlShare = subControlN / stackControlN
//
// Treated rows always carry weight 1. The denominators are totals over the
// entire stack, never over a single sub-experiment; aggregation therefore runs
// as a full read pass before any weight is assigned.
//
// All transformations are pure: inputs are never mutated and every stage
// returns a new owned slice.
package stacking
