// Package sizelimit turns the JSON output of `size-limit --json` into an
// ordered [Report] of bundle sizes.
//
// [Parse] is strict: anything other than a JSON array of objects carrying a
// name and a non-negative size fails with a [*MalformedReportError], so
// callers can tell a tooling problem apart from every other failure. A
// [Report] keeps the tool's output order for display and indexes entries by
// name for comparison.
package sizelimit
