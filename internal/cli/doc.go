// Package cli wires together the Cobra command tree for the sizewatch binary.
//
// It defines the root command and all subcommands (run, record, compare,
// diff, baseline, config, version), binds flags, reads configuration, builds
// the GitHub and storage collaborators for a run, and returns deterministic
// exit codes for CI gating.
package cli
