// Package pipeline wires measurement, baseline storage, comparison and
// comment publishing into the two run modes.
//
// A run on the main branch records a baseline: build, measure, parse, save.
// Any other run compares against the baseline: load (possibly absent),
// build, measure, parse, compare, and publish the report comment when the
// change is significant. The mode is chosen once by [SelectMode].
package pipeline
