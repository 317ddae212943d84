// Package app wires configuration, store, sources, pipeline construction,
// and the scheduler into a runnable application, and owns the optional HTTP
// status server.
package app
