package wire

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/bft-labs/puppetlink/internal/domain"
)

type envelope struct {
	Kind domain.Kind     `json:"kind"`
	Body json.RawMessage `json:"body,omitempty"`
}

// Marshal serializes a command into its self-describing payload.
func Marshal(cmd domain.Command) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("marshal: nil command")
	}
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", cmd.Kind(), err)
	}
	return json.Marshal(envelope{Kind: cmd.Kind(), Body: body})
}

// Unmarshal restores a command from a payload produced by Marshal.
func Unmarshal(data []byte) (domain.Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	ptr, ok := domain.NewCommand(env.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, env.Kind)
	}
	if len(env.Body) > 0 && string(env.Body) != "null" {
		if err := json.Unmarshal(env.Body, ptr); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
	}
	return reflect.ValueOf(ptr).Elem().Interface().(domain.Command), nil
}
