package translate

import (
	"errors"
	"fmt"

	"github.com/Alia5/padbridge/protocol"
)

// Movement converts movement samples into key transitions.
// A key is pressed only when it is not held and released only when it is,
// so repeated samples produce no events.
type Movement struct {
	sink  Sink
	state *KeyStateTable
}

// NewMovement creates a state machine writing to sink. A nil state starts
// from an empty table.
func NewMovement(sink Sink, state *KeyStateTable) *Movement {
	if state == nil {
		state = &KeyStateTable{}
	}
	return &Movement{sink: sink, state: state}
}

// State exposes the table driven by this machine.
func (m *Movement) State() *KeyStateTable { return m.state }

// Apply reflects one (axis, value) sample. Unknown axes are ignored and
// unknown values count as neutral. The opposing key is released before the
// new one is pressed so a pair is never held together.
func (m *Movement) Apply(axis, value uint8) error {
	pair, ok := Binding(axis)
	if !ok {
		return nil
	}
	switch value {
	case protocol.MovePositive:
		if err := m.release(pair.Negative); err != nil {
			return err
		}
		return m.press(pair.Positive)
	case protocol.MoveNegative:
		if err := m.release(pair.Positive); err != nil {
			return err
		}
		return m.press(pair.Negative)
	default:
		if err := m.release(pair.Positive); err != nil {
			return err
		}
		return m.release(pair.Negative)
	}
}

// ReleaseAll releases every held key. It keeps going after a failed release
// and returns the joined errors.
func (m *Movement) ReleaseAll() error {
	var errs []error
	for _, d := range m.state.HeldKeys() {
		if err := m.release(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Movement) press(d Direction) error {
	if m.state.Held(d) {
		return nil
	}
	if err := m.sink.PressKey(d.Key()); err != nil {
		return fmt.Errorf("press %s: %w", d, err)
	}
	m.state.set(d, true)
	return nil
}

func (m *Movement) release(d Direction) error {
	if !m.state.Held(d) {
		return nil
	}
	if err := m.sink.ReleaseKey(d.Key()); err != nil {
		return fmt.Errorf("release %s: %w", d, err)
	}
	m.state.set(d, false)
	return nil
}
