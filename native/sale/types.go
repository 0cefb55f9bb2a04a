package sale

// State represents the lifecycle of a sale or round. The shape is shared:
// None until opened, Opened while accepting contributions, Closed terminally.
type State uint8

const (
	StateNone State = iota
	StateOpened
	StateClosed
)

// Valid reports whether the state value is within the supported range.
func (s State) Valid() bool {
	switch s {
	case StateNone, StateOpened, StateClosed:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	switch s {
	case StateOpened:
		return "opened"
	case StateClosed:
		return "closed"
	default:
		return "none"
	}
}
