package panelio

import (
	"fmt"
	"strings"
)

// FieldMap names the semantic panel columns in the input and output tables.
// Zero values are filled by Normalize with the conventional column names.
type FieldMap struct {
	Unit     string `yaml:"unit" envconfig:"UNIT" default:"unit_id"`
	Time     string `yaml:"time" envconfig:"TIME" default:"time"`
	Outcome  string `yaml:"outcome" envconfig:"OUTCOME" default:"outcome"`
	Adoption string `yaml:"adoption" envconfig:"ADOPTION" default:"adoption_time"`

	// Derived output columns written by the exporter.
	Treated       string `yaml:"treated" envconfig:"TREATED" default:"treat"`
	Post          string `yaml:"post" envconfig:"POST" default:"post"`
	EventTime     string `yaml:"event_time" envconfig:"EVENT_TIME" default:"event_time"`
	SubExperiment string `yaml:"sub_exp" envconfig:"SUB_EXP" default:"sub_exp"`
	Weight        string `yaml:"weight" envconfig:"WEIGHT" default:"stack_weight"`
}

// DefaultFieldMap returns the conventional column names.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		Unit:          "unit_id",
		Time:          "time",
		Outcome:       "outcome",
		Adoption:      "adoption_time",
		Treated:       "treat",
		Post:          "post",
		EventTime:     "event_time",
		SubExperiment: "sub_exp",
		Weight:        "stack_weight",
	}
}

// Normalize fills empty selectors with their conventional names.
func (fm *FieldMap) Normalize() {
	def := DefaultFieldMap()
	fill := func(dst *string, fallback string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = fallback
		}
	}
	fill(&fm.Unit, def.Unit)
	fill(&fm.Time, def.Time)
	fill(&fm.Outcome, def.Outcome)
	fill(&fm.Adoption, def.Adoption)
	fill(&fm.Treated, def.Treated)
	fill(&fm.Post, def.Post)
	fill(&fm.EventTime, def.EventTime)
	fill(&fm.SubExperiment, def.SubExperiment)
	fill(&fm.Weight, def.Weight)
}

// SchemaError reports a field selector that does not resolve to a column of
// the input table.
type SchemaError struct {
	Field    string
	Selector string
	Columns  []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("field selector %q (%s) does not resolve to a column; available columns: %s",
		e.Selector, e.Field, strings.Join(e.Columns, ", "))
}
