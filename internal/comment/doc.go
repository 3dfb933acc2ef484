// Package comment keeps exactly one size report comment on a pull request.
//
// The comment is identified by the [Marker] heading at the start of its body
// rather than by a stored id, so independent CI runs can find it again
// without any local state. [Reconciler.Publish] lists the pull request's
// comments, updates the first marked one in place and creates one when none
// exists. The find-or-create is not transactional: concurrent runs for the
// same pull request resolve as last writer wins.
package comment
