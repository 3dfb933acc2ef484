// Package config loads and merges sizewatch configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables: SIZEWATCH_<KEY>, then the action input
//     INPUT_<KEY>, then runner defaults such as GITHUB_TOKEN,
//     GITHUB_WORKFLOW and GITHUB_REPOSITORY for the keys that have one
//  3. Config file (.sizewatch.yaml in the working directory, or --config)
//  4. Built-in defaults
//
// Nested keys use dots in files and flags (baseline.s3.bucket) and
// underscores in environment variables (SIZEWATCH_BASELINE_S3_BUCKET).
//
// Use [Load] to obtain a merged [Config], [Save] to write a config file, and
// [Set] to update a single key in the config file.
package config
