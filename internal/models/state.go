package models

// State is the lifecycle position of a constitution
type State string

const (
	StateOpen             State = "open"
	StateLocked           State = "locked"
	StateResultsPublished State = "results_published"
	StateFinished         State = "finished"
)

// StateOf derives the lifecycle state from the stored flags.
func StateOf(c *Constitution) State {
	switch {
	case c.Finished:
		return StateFinished
	case c.IsShowingResult:
		return StateResultsPublished
	case c.IsLocked:
		return StateLocked
	default:
		return StateOpen
	}
}

// Flags returns the stored flag values that represent s.
func (s State) Flags() (locked, showingResult bool) {
	switch s {
	case StateLocked:
		return true, false
	case StateResultsPublished, StateFinished:
		return true, true
	default:
		return false, false
	}
}
