package updatemanager

// State of the cutover of a single cycle
type State int

const (
	StateIdle State = iota
	StateAnnounced
	StateGracePeriod1
	StateGracePeriod2
	StateStopping
	StateSwapping
	StateRestarting
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAnnounced:
		return "Announced"
	case StateGracePeriod1:
		return "GracePeriod1"
	case StateGracePeriod2:
		return "GracePeriod2"
	case StateStopping:
		return "Stopping"
	case StateSwapping:
		return "Swapping"
	case StateRestarting:
		return "Restarting"
	case StateDone:
		return "Done"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the cycle ends in this state
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// Committed reports whether cancellation is no longer honored
func (s State) Committed() bool {
	return s >= StateStopping && s <= StateDone
}
