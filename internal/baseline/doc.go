// Package baseline stores the size report measured on the main branch so
// pull-request runs can compare against it.
//
// A [Store] serializes a report into a versioned record and hands the bytes
// to a [Channel]. Three channels exist: [ArtifactChannel] keeps the record as
// a GitHub Actions artifact, [FileChannel] in a local directory and
// [S3Channel] in an S3-compatible bucket. Records are keyed by branch and
// workflow; the newest write for a key wins.
//
// Loading never fails. Any reason a usable baseline cannot be produced
// (missing, unreadable, corrupt, written for another key) yields the absent
// result, and everything other than "not found" is logged as a warning.
package baseline
