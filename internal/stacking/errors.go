package stacking

import "fmt"

// InvalidWindowError reports a window with a negative pre or post half-width.
type InvalidWindowError struct {
	Window Window
}

// Error implements the error interface.
func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid event window: pre=%d, post=%d (half-widths must be non-negative)", e.Window.Pre, e.Window.Post)
}

// EmptyResultError reports that no rows survived sub-experiment construction
// or feasibility filtering. It is distinguishable from a successful non-empty
// build and names the focal adoption time when one applies (Focal is nil for
// an empty assembled stack).
type EmptyResultError struct {
	Focal *int
}

// Error implements the error interface.
func (e *EmptyResultError) Error() string {
	if e.Focal != nil {
		return fmt.Sprintf("sub-experiment %d: no rows survived filtering", *e.Focal)
	}
	return "stack is empty: every sub-experiment was infeasible"
}

// NoEventsError reports a panel with no non-never adoption times, so no
// sub-experiment can be built.
type NoEventsError struct{}

// Error implements the error interface.
func (e *NoEventsError) Error() string {
	return "panel contains no adoption events"
}

// DegenerateWeightError reports a zero denominator in the share computation
// for one (sub-experiment, event-time) cell. Emitting an infinite or NaN
// weight instead would silently poison the downstream regression, so weighting
// aborts on the first degenerate cell.
type DegenerateWeightError struct {
	SubExperiment int
	EventTime     int
	Reason        string
}

// Error implements the error interface.
func (e *DegenerateWeightError) Error() string {
	return fmt.Sprintf("degenerate weight at sub_exp=%d event_time=%d: %s", e.SubExperiment, e.EventTime, e.Reason)
}
