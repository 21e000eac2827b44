package domain

import "fmt"

// LifecycleState is the run state of a strategy instance.
type LifecycleState int

const (
	StateCreated LifecycleState = iota
	StateInitialized
	StateTrading
	StateStopped
)

// String returns the string representation of LifecycleState
func (s LifecycleState) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateInitialized:
		return "INITIALIZED"
	case StateTrading:
		return "TRADING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s LifecycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseLifecycleState is the inverse of String.
func ParseLifecycleState(s string) (LifecycleState, error) {
	for _, st := range []LifecycleState{StateCreated, StateInitialized, StateTrading, StateStopped} {
		if st.String() == s {
			return st, nil
		}
	}
	return StateCreated, fmt.Errorf("unknown lifecycle state %q", s)
}

// Lifecycle owns the state of one strategy instance. Transitions are
// driven only by explicit calls from the engine.
type Lifecycle struct {
	state LifecycleState
}

// State returns the current state.
func (l *Lifecycle) State() LifecycleState {
	return l.state
}

// Inited is true once Init has succeeded, including while trading or stopped.
func (l *Lifecycle) Inited() bool {
	return l.state != StateCreated
}

// Trading is true only in TRADING.
func (l *Lifecycle) Trading() bool {
	return l.state == StateTrading
}

// Init moves CREATED -> INITIALIZED.
func (l *Lifecycle) Init() error {
	return l.transition(StateInitialized, StateCreated)
}

// Start moves INITIALIZED or STOPPED -> TRADING.
func (l *Lifecycle) Start() error {
	return l.transition(StateTrading, StateInitialized, StateStopped)
}

// Stop moves TRADING -> STOPPED.
func (l *Lifecycle) Stop() error {
	return l.transition(StateStopped, StateTrading)
}

func (l *Lifecycle) transition(to LifecycleState, from ...LifecycleState) error {
	for _, f := range from {
		if l.state == f {
			l.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, to)
}
