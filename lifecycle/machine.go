// Package lifecycle holds the status state machines shared by the outbox and
// notification dispatchers. Both record types move through their states only
// along the transitions registered here.
package lifecycle

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidTransition = errors.New("lifecycle: invalid status transition")
	ErrUnknownStatus     = errors.New("lifecycle: unknown status")
)

type Status string

func (s Status) String() string {
	return string(s)
}

type Machine struct {
	name        string
	transitions map[Status]map[Status]bool
}

// NewMachine builds a state machine from an adjacency list. A status that only
// appears as a transition target is still known to the machine.
func NewMachine(name string, transitions map[Status][]Status) Machine {
	m := Machine{
		name:        name,
		transitions: map[Status]map[Status]bool{},
	}

	for from, targets := range transitions {
		if _, ok := m.transitions[from]; !ok {
			m.transitions[from] = map[Status]bool{}
		}
		for _, to := range targets {
			m.transitions[from][to] = true
			if _, ok := m.transitions[to]; !ok {
				m.transitions[to] = map[Status]bool{}
			}
		}
	}

	return m
}

func (m Machine) Name() string {
	return m.name
}

func (m Machine) IsKnown(s Status) bool {
	_, ok := m.transitions[s]
	return ok
}

func (m Machine) CanTransition(from, to Status) bool {
	return m.transitions[from][to]
}

// Validate returns nil when from -> to is allowed. The returned error wraps
// ErrUnknownStatus or ErrInvalidTransition.
func (m Machine) Validate(from, to Status) error {
	if !m.IsKnown(from) {
		return errors.Wrapf(ErrUnknownStatus, "%s: %q", m.name, from)
	}

	if !m.IsKnown(to) {
		return errors.Wrapf(ErrUnknownStatus, "%s: %q", m.name, to)
	}

	if !m.CanTransition(from, to) {
		return errors.Wrapf(ErrInvalidTransition, "%s: %s -> %s", m.name, from, to)
	}

	return nil
}

// Terminal reports whether no transition leaves s.
func (m Machine) Terminal(s Status) bool {
	return m.IsKnown(s) && len(m.transitions[s]) == 0
}
