package scheduler

// Snapshot is an immutable point-in-time view of run progress. It is built
// by the coordinating goroutine and published atomically, so readers never
// contend with the dispatch loop.
type Snapshot struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Completed returns the number of tasks in a terminal state.
func (s Snapshot) Completed() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// Progress returns the completed fraction in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Completed()) / float64(s.Total)
}
