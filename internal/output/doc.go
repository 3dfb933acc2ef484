// Package output renders bundle size comparisons for display or machine
// consumption.
//
// [Render] turns comparisons into a [Table] with a stable layout, and
// [Markdown] turns a table into the body used for pull-request comments.
// Four report formats are supported:
//   - text     — bordered terminal table (default)
//   - json     — full structured comparison
//   - yaml     — same structure as json
//   - markdown — the comment table
//
// Use [GetWriter] to obtain a [Writer] for a format string, or [WriteReport]
// to write to a file path or a given stdout writer.
package output
