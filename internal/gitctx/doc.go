// Package gitctx reads repository metadata from a local git checkout.
//
// It is used when sizewatch runs outside of GitHub Actions, where the ref
// being built has to come from the working tree instead of GITHUB_REF.
package gitctx
