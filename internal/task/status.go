package task

// Status is the lifecycle state of a task.
//
// Transitions: pending → running → {success, failed}, and pending → skipped
// (cascade path only; skipped tasks never run). success, failed, and skipped
// are terminal.
type Status int

const (
	// StatusPending indicates the task has been registered but not dispatched.
	StatusPending Status = iota
	// StatusRunning indicates the task body is currently executing.
	StatusRunning
	// StatusSuccess indicates the task body returned without error.
	StatusSuccess
	// StatusFailed indicates all attempts were exhausted without success.
	StatusFailed
	// StatusSkipped indicates the task was never attempted because an
	// upstream dependency failed or was itself skipped.
	StatusSkipped
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}
