// Package redact keeps credentials out of sizewatch logs.
//
// A logrus Hook rewrites every entry before it is formatted: values
// registered with Mask (the GitHub token, the S3 secret key, the Actions
// runtime token) are replaced verbatim, and regex heuristics catch common
// credential shapes that reach the log through error messages or tool
// output: GitHub tokens, JWTs, bearer tokens, AWS keys and the
// signatures of pre-signed blob URLs.
package redact
