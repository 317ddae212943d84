// Package config loads and validates the HCL pipeline declaration: symbols,
// sources, aggregation intervals, the concurrency bound, and the default
// task execution policy. Environment variables are exposed to expressions
// through the `env` object.
package config
