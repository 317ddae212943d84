package dag

import (
	"github.com/vk/predictflow/internal/task"
)

// Graph owns all registered tasks, validates the structural invariants
// (id uniqueness, no dangling references, acyclicity), and answers the
// scheduler's incremental readiness queries during a run.
//
// Graph is not safe for concurrent use. The scheduler confines all graph
// access to its single coordinating goroutine.
type Graph struct {
	tasks map[string]*task.Task
	// order preserves registration order; ready tasks are dispatched FIFO.
	order []string

	// Derived indices, built once by Validate.
	dependents map[string][]string
	indegree   map[string]int
	validated  bool

	// Per-run state, reset by Reset.
	remaining map[string]int
	cascaded  map[string]bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		tasks: make(map[string]*task.Task),
	}
}

// Add registers a task. It returns a DuplicateError if the id is already
// taken. Adding a task invalidates any previous Validate result.
func (g *Graph) Add(t *task.Task) error {
	if _, ok := g.tasks[t.ID]; ok {
		return &DuplicateError{ID: t.ID}
	}
	g.tasks[t.ID] = t
	g.order = append(g.order, t.ID)
	g.validated = false
	return nil
}

// AddAll registers tasks in order, stopping at the first collision.
func (g *Graph) AddAll(tasks ...*task.Task) error {
	for _, t := range tasks {
		if err := g.Add(t); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of registered tasks.
func (g *Graph) Len() int {
	return len(g.tasks)
}

// Task returns the task with the given id.
func (g *Graph) Task(id string) (*task.Task, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// IDs returns all task ids in registration order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Validate checks the structural invariants and builds the derived indices
// (dependents, in-degrees). It returns an UnknownDependencyError for a
// dangling dependency id and a CycleError if the dependency relation is not
// acyclic. Validate is idempotent and must be called before a run.
func (g *Graph) Validate() error {
	if g.validated {
		return nil
	}

	dependents := make(map[string][]string, len(g.tasks))
	indegree := make(map[string]int, len(g.tasks))
	for _, id := range g.order {
		indegree[id] = len(g.tasks[id].Deps)
		for _, dep := range g.tasks[id].Deps {
			if _, ok := g.tasks[dep]; !ok {
				return &UnknownDependencyError{ID: id, Dep: dep}
			}
			dependents[dep] = append(dependents[dep], id)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return &CycleError{Path: cycle}
	}

	g.dependents = dependents
	g.indegree = indegree
	g.validated = true
	g.Reset()
	return nil
}

// findCycle runs an iterative depth-first traversal over dependency edges
// with an explicit stack and on-stack markers. It returns the offending cycle
// path, or nil if the graph is acyclic.
func (g *Graph) findCycle() []string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(g.tasks))

	type frame struct {
		id   string
		next int
	}

	for _, root := range g.order {
		if state[root] != unvisited {
			continue
		}
		stack := []frame{{id: root}}
		state[root] = onStack

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.tasks[top.id].Deps
			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++
				switch state[dep] {
				case unvisited:
					state[dep] = onStack
					stack = append(stack, frame{id: dep})
				case onStack:
					// Reconstruct the cycle from the stack, closing the loop.
					var path []string
					for i := range stack {
						if stack[i].id == dep {
							for _, f := range stack[i:] {
								path = append(path, f.id)
							}
							break
						}
					}
					return append(path, dep)
				}
				continue
			}
			state[top.id] = done
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}

// Reset restores the per-run counters so the same validated graph can drive
// a fresh run.
func (g *Graph) Reset() {
	g.remaining = make(map[string]int, len(g.indegree))
	for id, n := range g.indegree {
		g.remaining[id] = n
	}
	g.cascaded = make(map[string]bool)
}

// InitialReady returns the ids of tasks with zero dependencies, in
// registration order.
func (g *Graph) InitialReady() []string {
	var ready []string
	for _, id := range g.order {
		if g.remaining[id] == 0 {
			ready = append(ready, id)
		}
	}
	return ready
}

// Skip records an upstream-driven skip of a task reaching the graph from
// outside the normal cascade (the scheduler's pipeline-wide halt). It keeps
// later NotifyTerminal calls from re-offering the task as ready.
func (g *Graph) Skip(id string) {
	g.cascaded[id] = true
}

// CascadeSkip names a task that must be skipped and the terminal upstream
// task that caused it.
type CascadeSkip struct {
	ID       string
	Upstream string
}

// NotifyTerminal records that the given task reached a terminal state. When
// ok is true it returns the dependents whose every dependency is now
// satisfied, in registration order. When ok is false (failed or skipped) it
// returns the transitive dependents that must be cascade-skipped, computed
// with an explicit worklist so deep graphs cannot overflow the stack.
func (g *Graph) NotifyTerminal(id string, ok bool) (ready []string, skipped []CascadeSkip) {
	if ok {
		for _, dep := range g.dependents[id] {
			g.remaining[dep]--
			if g.remaining[dep] == 0 && !g.cascaded[dep] {
				ready = append(ready, dep)
			}
		}
		return ready, nil
	}

	work := []string{id}
	for len(work) > 0 {
		cur := work[0]
		work = work[1:]
		for _, dep := range g.dependents[cur] {
			if g.cascaded[dep] {
				continue
			}
			g.cascaded[dep] = true
			skipped = append(skipped, CascadeSkip{ID: dep, Upstream: cur})
			work = append(work, dep)
		}
	}
	return nil, skipped
}
