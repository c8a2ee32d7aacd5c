// Package steps implements the linear upload, arrange and finalize workflow
// that gates which session operations are reachable.
package steps

import (
	"errors"
	"fmt"
	"sync"
)

// Step is a workflow position. Values are ordered.
type Step int

const (
	Upload Step = iota
	Arrange
	Finalize
)

func (s Step) String() string {
	switch s {
	case Upload:
		return "upload"
	case Arrange:
		return "arrange"
	case Finalize:
		return "finalize"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Action is a user operation gated by the current step.
type Action string

const (
	ActionAdd     Action = "add"
	ActionRemove  Action = "remove"
	ActionReorder Action = "reorder"
	ActionPreview Action = "preview"
	ActionRate    Action = "rate"
	ActionEncode  Action = "encode"
)

var allowed = map[Step]map[Action]bool{
	Upload:   {ActionAdd: true},
	Arrange:  {ActionRemove: true, ActionReorder: true, ActionPreview: true},
	Finalize: {ActionRate: true, ActionPreview: true, ActionEncode: true},
}

// ErrTransition is returned for transitions the current step does not allow.
var ErrTransition = errors.New("step transition not allowed")

// Machine is the step controller. It has no terminal state.
type Machine struct {
	mu   sync.Mutex
	step Step
	// listeners observe every transition with the previous and new step.
	listeners []func(from, to Step)
}

// New returns a machine positioned at Upload.
func New() *Machine {
	return &Machine{step: Upload}
}

// OnChange registers fn to observe transitions. fn runs without locks held.
func (m *Machine) OnChange(fn func(from, to Step)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Current returns the current step.
func (m *Machine) Current() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// Allows reports whether action is reachable from the current step.
func (m *Machine) Allows(action Action) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return allowed[m.step][action]
}

// Ingested is the post-condition of a successful ingestion: from Upload the
// machine advances to Arrange. It returns whether a transition happened.
func (m *Machine) Ingested() bool {
	m.mu.Lock()
	if m.step != Upload {
		m.mu.Unlock()
		return false
	}
	return m.moveLocked(Arrange)
}

// Next advances Arrange to Finalize. sequenceLen is the number of entries
// currently in the session.
func (m *Machine) Next(sequenceLen int) (Step, error) {
	m.mu.Lock()
	switch {
	case m.step != Arrange:
		step := m.step
		m.mu.Unlock()
		return step, fmt.Errorf("%w: next from %s", ErrTransition, step)
	case sequenceLen <= 0:
		m.mu.Unlock()
		return Arrange, fmt.Errorf("%w: sequence is empty", ErrTransition)
	}
	m.moveLocked(Finalize)
	return Finalize, nil
}

// Back moves one step towards Upload. It fails only at Upload.
func (m *Machine) Back() (Step, error) {
	m.mu.Lock()
	if m.step == Upload {
		m.mu.Unlock()
		return Upload, fmt.Errorf("%w: back from %s", ErrTransition, Upload)
	}
	to := m.step - 1
	m.moveLocked(to)
	return to, nil
}

// moveLocked transitions and releases the lock before notifying listeners.
func (m *Machine) moveLocked(to Step) bool {
	from := m.step
	m.step = to
	listeners := append([]func(from, to Step){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(from, to)
	}
	return true
}
