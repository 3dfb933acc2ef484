// Package actions reads the GitHub Actions job environment: the ref being
// built, the repository, the workflow, the triggering event's pull request
// and the runtime credentials used for artifact upload.
package actions
