package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// ErrUnknownEvent is returned by Decode for names outside a channel's
// vocabulary. Callers ignore such events.
var ErrUnknownEvent = errors.New("unknown event")

// Unmarshaler decodes one payload in the channel's wire encoding.
type Unmarshaler interface {
	Unmarshal(data []byte, v any) error
}

// Decode turns a raw frame payload into its typed event. An empty
// payload yields the zero event.
func Decode(u Unmarshaler, ch Channel, name string, data []byte) (Event, error) {
	newEvent, ok := registry[ch][Kind(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownEvent, ch, name)
	}
	ev := newEvent()
	if len(data) == 0 {
		return ev, nil
	}

	if o, ok := ev.(opaque); ok {
		var v any
		if err := u.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		o.setPayload(v)
		return ev, nil
	}
	if err := u.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return ev, nil
}

// NodeID identifies a queue node, plot or plan. The server sends these
// as integers or strings; both decode to the same text form.
type NodeID string

func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NodeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("node id: %w", err)
	}
	*id = NodeID(n.String())
	return nil
}

func (id *NodeID) UnmarshalCBOR(data []byte) error {
	var v any
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	switch n := v.(type) {
	case uint64:
		*id = NodeID(strconv.FormatUint(n, 10))
	case int64:
		*id = NodeID(strconv.FormatInt(n, 10))
	default:
		*id = NodeID(asString(v))
	}
	return nil
}

// TaskIndex is a task's position within its sample. Only an explicit
// null marks a node that is not a task; an absent index is a task at
// the zero value.
type TaskIndex struct {
	Value int
	Null  bool
}

func (ti *TaskIndex) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*ti = TaskIndex{Null: true}
		return nil
	}
	*ti = TaskIndex{}
	if err := json.Unmarshal(data, &ti.Value); err != nil {
		return fmt.Errorf("task index: %w", err)
	}
	return nil
}

func (ti *TaskIndex) UnmarshalCBOR(data []byte) error {
	if len(data) == 1 && data[0] == 0xf6 {
		*ti = TaskIndex{Null: true}
		return nil
	}
	*ti = TaskIndex{}
	if err := cbor.Unmarshal(data, &ti.Value); err != nil {
		return fmt.Errorf("task index: %w", err)
	}
	return nil
}
