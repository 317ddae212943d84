// Package pipeline expands a pipeline declaration into the concrete task set
// the scheduler runs: per-series fetch → clean → store chains, per-symbol
// aggregation and analysis stages, and a final health check. Task bodies are
// closures over the shared store and the configured sources; the scheduler
// never sees anything but their success or failure.
package pipeline
