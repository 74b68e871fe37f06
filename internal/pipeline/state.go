package pipeline

import (
	"errors"
	"fmt"
)

// State is a stage in the invoice pipeline lifecycle
type State string

const (
	StateReceived         State = "RECEIVED"
	StateNormalized       State = "NORMALIZED"
	StateDraftReady       State = "DRAFT_READY"
	StateAwaitingApproval State = "AWAITING_APPROVAL"
	StateApproved         State = "APPROVED"
	StateRendered         State = "RENDERED"
	StatePublished        State = "PUBLISHED"
	StateNotified         State = "NOTIFIED"
	StateFailed           State = "FAILED"
)

// ErrInvalidTransition is returned when a state transition is not allowed
var ErrInvalidTransition = errors.New("invalid state transition")

// The pipeline is strictly sequential: each state has exactly one successor.
// Failed is reachable from any non-terminal state.
var successor = map[State]State{
	StateReceived:         StateNormalized,
	StateNormalized:       StateDraftReady,
	StateDraftReady:       StateAwaitingApproval,
	StateAwaitingApproval: StateApproved,
	StateApproved:         StateRendered,
	StateRendered:         StatePublished,
	StatePublished:        StateNotified,
}

var terminalStates = map[State]bool{
	StateNotified: true,
	StateFailed:   true,
}

// IsTerminal returns true if no further transitions are allowed
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// Machine tracks one invoice's progress through the pipeline and validates
// that steps run in order. Not safe for concurrent use; each pipeline
// invocation owns its machine.
type Machine struct {
	state State
}

// NewMachine starts a machine at the given state
func NewMachine(initial State) *Machine {
	return &Machine{state: initial}
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Advance moves to the next state, which must be the current state's single
// successor.
func (m *Machine) Advance(to State) error {
	if successor[m.state] != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	m.state = to
	return nil
}

// Fail absorbs the machine into the Failed state from any non-terminal state
func (m *Machine) Fail() error {
	if m.state.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, StateFailed)
	}
	m.state = StateFailed
	return nil
}
