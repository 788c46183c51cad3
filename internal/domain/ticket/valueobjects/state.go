package valueobjects

// State is the lifecycle position of a ticket. OPEN covers both a freshly
// created channel and one in active use.
type State string

const (
	StateNone    State = "none"
	StateOpen    State = "open"
	StateClosing State = "closing"
	StateDeleted State = "deleted"
)

var stateTransitions = map[State][]State{
	StateNone:    {StateOpen},
	StateOpen:    {StateClosing},
	StateClosing: {StateDeleted},
}

func (s State) String() string {
	return string(s)
}

func (s State) IsValid() bool {
	switch s {
	case StateNone, StateOpen, StateClosing, StateDeleted:
		return true
	}
	return false
}

func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) IsOpen() bool {
	return s == StateOpen
}

func (s State) IsClosing() bool {
	return s == StateClosing
}

func (s State) IsDeleted() bool {
	return s == StateDeleted
}
