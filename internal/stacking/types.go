package stacking

// AdoptionTime is the period in which a unit begins treatment. A unit that
// never adopts is a valid control for every sub-experiment; never-adopted
// compares strictly after every finite period and equals none of them.
type AdoptionTime struct {
	period int
	never  bool
}

// AdoptedAt returns the adoption time for a unit treated starting at period p.
func AdoptedAt(p int) AdoptionTime {
	return AdoptionTime{period: p}
}

// NeverAdopted returns the adoption time of a never-treated unit.
func NeverAdopted() AdoptionTime {
	return AdoptionTime{never: true}
}

// Never reports whether the unit never adopts treatment.
func (a AdoptionTime) Never() bool {
	return a.never
}

// Period returns the adoption period and whether one exists.
func (a AdoptionTime) Period() (int, bool) {
	if a.never {
		return 0, false
	}
	return a.period, true
}

// Is reports whether the unit adopts exactly at period p. Never-adopted units
// adopt at no period.
func (a AdoptionTime) Is(p int) bool {
	return !a.never && a.period == p
}

// After reports whether adoption happens strictly after period p.
// Never-adopted sorts after every period.
func (a AdoptionTime) After(p int) bool {
	return a.never || a.period > p
}

// Observation is one (unit, time) row of the input panel. The panel holds at
// most one row per (unit, time) pair, and Adoption is constant within a unit.
type Observation struct {
	Unit     string       `json:"unit"`
	Time     int          `json:"time"`
	Outcome  float64      `json:"outcome"`
	Adoption AdoptionTime `json:"-"`
}

// StackedObservation is an Observation placed inside one sub-experiment,
// augmented with the derived indicator columns and, after weighting, the
// corrective stack weight.
type StackedObservation struct {
	Observation

	// SubExperiment identifies the sub-experiment: the focal adoption time
	// the row was built around.
	SubExperiment int `json:"sub_exp"`

	// EventTime is calendar time minus the focal adoption time; 0 is the
	// period of adoption.
	EventTime int `json:"event_time"`

	// Treated is 1 when the row's unit is the focal adoption cohort, else 0.
	Treated int `json:"treat"`

	// Post is 1 when the row's period is at or after the focal adoption time.
	Post int `json:"post"`

	// Feasible reports whether the sub-experiment's full pre/post window lies
	// inside the panel's observed calendar range. It is a property of the
	// sub-experiment, shared by all its rows.
	Feasible bool `json:"feasible"`

	// Weight is the corrective sample weight assigned by ComputeWeights.
	// Treated rows always carry 1.
	Weight float64 `json:"stack_weight"`
}

// Window holds the pre/post half-widths of the event window around a focal
// adoption time, in panel periods.
type Window struct {
	Pre  int `json:"pre"`
	Post int `json:"post"`
}

// Validate checks the window half-widths. Both must be non-negative.
func (w Window) Validate() error {
	if w.Pre < 0 || w.Post < 0 {
		return &InvalidWindowError{Window: w}
	}
	return nil
}

// Span returns the total number of periods covered by the window, including
// the adoption period itself.
func (w Window) Span() int {
	return w.Pre + w.Post + 1
}

// timeRange is the observed calendar range of a panel.
type timeRange struct {
	min int
	max int
}

// panelTimeRange computes the global min/max period over the entire panel.
// The feasibility check reads this range, so it must be taken before any row
// filtering.
func panelTimeRange(panel []Observation) timeRange {
	r := timeRange{min: panel[0].Time, max: panel[0].Time}
	for _, obs := range panel[1:] {
		if obs.Time < r.min {
			r.min = obs.Time
		}
		if obs.Time > r.max {
			r.max = obs.Time
		}
	}
	return r
}
