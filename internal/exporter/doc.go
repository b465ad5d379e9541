// Package exporter writes the stacked, weighted dataset and its balance
// diagnostics to CSV for the external regression collaborator. Output column
// names come from the caller's field map, so the handoff matches whatever
// selectors the regression script expects.
package exporter
