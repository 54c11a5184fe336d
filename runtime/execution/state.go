package execution

// State represents the lifecycle state of a session.
type State string

const (
	StateNotStarted State = "notStarted"
	StateRunning    State = "running"
	StateConcluded  State = "concluded"
	StateFailed     State = "failed"
)

// IsTerminal reports whether the state ends the forward phase.
func (s State) IsTerminal() bool {
	return s == StateConcluded || s == StateFailed
}
