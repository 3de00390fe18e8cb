package display

// State is the power state of a panel.
type State int

const (
	// Ready is the state after New, before the panel was first used.
	Ready State = iota
	// Active means the panel is powered and initialised. A panel is left
	// Active by a failed call and by a colour calibration.
	Active
	// Asleep means the panel is in deep sleep. The next call wakes it.
	Asleep
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Active:
		return "active"
	case Asleep:
		return "asleep"
	default:
		return "unknown"
	}
}
