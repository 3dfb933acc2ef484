// Sizewatch is a CI bot that tracks JavaScript bundle size with size-limit.
//
// On the main branch it records the measurement as a baseline; on pull
// requests it compares against that baseline and keeps a single report
// comment up to date. Exit codes are deterministic for CI gating.
//
// Usage:
//
//	sizewatch run                        # record or compare, chosen from the ref
//	sizewatch record                     # measure and save the baseline
//	sizewatch compare --pr 12 --dry-run  # compare and print the comment
//	sizewatch diff base.json current.json
//	sizewatch baseline show
//	sizewatch config init
package main
