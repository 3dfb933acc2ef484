// Package logging builds the logrus logger used by sizewatch.
//
// Inside a GitHub Actions job, warnings and errors are written as workflow
// commands so the runner turns them into annotations, and debug lines are
// only shown when step debugging is enabled. Elsewhere a plain text
// formatter is used.
package logging
