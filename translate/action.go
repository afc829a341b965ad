package translate

import (
	"context"
	"fmt"

	"github.com/Alia5/padbridge/protocol"
)

// Action is a discrete one-shot command from the controller buttons.
type Action uint8

const (
	ActionPrimaryClick Action = iota + 1
	ActionSecondaryClick
	ActionInteract
	ActionJump
)

func (a Action) String() string {
	switch a {
	case ActionPrimaryClick:
		return "primary-click"
	case ActionSecondaryClick:
		return "secondary-click"
	case ActionInteract:
		return "interact"
	case ActionJump:
		return "jump"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Dispatch emits the event for a single action code. Unknown codes are no-ops.
func Dispatch(sink Sink, code uint8) error {
	switch Action(code) {
	case ActionPrimaryClick:
		return sink.Click(ButtonPrimary)
	case ActionSecondaryClick:
		return sink.Click(ButtonSecondary)
	case ActionInteract:
		return sink.PressOnce(KeyInteract)
	case ActionJump:
		return sink.PressOnce(KeyJump)
	default:
		return nil
	}
}

// RunActions reads one action code per byte from src and dispatches it.
// Read timeouts are skipped. It returns when src fails, the sink fails or
// ctx is done.
func RunActions(ctx context.Context, src protocol.ByteSource, sink Sink) error {
	var b [1]byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.Read(b[:])
		if err != nil {
			return fmt.Errorf("read action: %w", err)
		}
		if n == 0 {
			continue
		}
		if err := Dispatch(sink, b[0]); err != nil {
			return fmt.Errorf("dispatch %s: %w", Action(b[0]), err)
		}
	}
}
