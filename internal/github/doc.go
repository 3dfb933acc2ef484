// Package github provides a minimal GitHub client for sizewatch.
//
// [Client] talks to the REST API: issue comments (as a [comment.API]),
// workflow runs and their artifacts, and artifact archive downloads. It is
// built on resty and authenticates with a bearer token.
//
// [ResultsClient] uploads workflow artifacts through the Actions results
// service the runner exposes to a job (ACTIONS_RESULTS_URL), using the
// create, upload, finalize sequence. An artifact only becomes visible once
// finalized, so an interrupted upload never leaves a readable partial
// artifact behind.
package github
