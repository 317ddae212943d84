package dag

import (
	"fmt"
	"strings"
)

// DuplicateError reports a task id collision during registration.
type DuplicateError struct {
	ID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate task id %q", e.ID)
}

// UnknownDependencyError reports a dependency id that references no
// registered task.
type UnknownDependencyError struct {
	ID  string
	Dep string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("task %q depends on unknown task %q", e.ID, e.Dep)
}

// CycleError reports a dependency cycle. Path holds the offending cycle in
// dependency order, closing back on the first element.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "cycle detected in dependency graph"
	}
	return fmt.Sprintf("cycle detected in dependency graph: %s", strings.Join(e.Path, " -> "))
}
