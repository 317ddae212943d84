// Package store is the in-memory market data store shared by the pipeline
// stages: raw ticks in, cleaned ticks, aggregated bars, and analysis results
// out. All operations are safe for concurrent use by tasks running in
// parallel.
package store
