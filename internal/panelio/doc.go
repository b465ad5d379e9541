// Package panelio reads long-format panel data into the typed observations
// consumed by the stacking core.
//
// The core itself is schema-free: field-name selectors are resolved here, at
// the tabular boundary. A FieldMap names the unit, time, outcome and
// adoption-time columns; readers resolve those selectors against the input
// header and fail with a *SchemaError naming the unresolved selector and the
// columns that were available. CSV and XLSX inputs share one record parser, so
// both formats enforce the same panel invariants: integer periods, at most one
// row per (unit, time) pair, and an adoption time constant within each unit.
//
// An empty adoption cell (or one of "NA", "N/A", "null", ".") marks a
// never-treated unit.
package panelio
