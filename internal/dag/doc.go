// Package dag holds the validated collection of tasks plus their
// dependency/dependent indices. It is the structural half of the
// orchestrator: registration, duplicate/dangling-reference/cycle validation,
// and the incremental readiness and cascade-skip queries the scheduler asks
// while a run advances.
package dag
