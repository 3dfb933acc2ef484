// Package toolrun runs the project's install and build scripts and the
// size-limit measurement in the configured directory.
//
// yarn is used when the directory has a yarn.lock, npm otherwise. The
// measurement's stdout is captured for parsing and echoed to the log; a
// non-zero exit status is a size limit breach and is returned, not treated
// as an error.
package toolrun
