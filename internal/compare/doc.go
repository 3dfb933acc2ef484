// Package compare computes per-bundle size deltas between a baseline report
// and the current report, and decides whether the change is significant
// enough to publish.
//
// Entries are matched by exact name. A missing baseline is not an error:
// [Compare] accepts a nil base and reports every current bundle as new.
// [Threshold] is either a non-negative percentage or undefined, in which case
// every run is significant.
package compare
