package transport

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
)

// Frame is one envelope on a channel. Inbound events carry Event and,
// when the server expects an answer, AckID. Acknowledgments travel the
// other way with Event empty.
type Frame struct {
	Event string
	Data  []byte
	AckID *uint64
}

// Codec encodes envelopes and payloads for one wire format.
type Codec interface {
	Name() string
	// MessageType is the websocket frame type the codec writes.
	MessageType() int
	EncodeFrame(f Frame) ([]byte, error)
	DecodeFrame(b []byte) (Frame, error)
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// NewCodec returns the codec registered under name ("json" or "cbor").
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// EncodeAck builds the acknowledgment frame for id. A nil reply is a
// bare acknowledgment.
func EncodeAck(c Codec, id uint64, reply any) ([]byte, error) {
	f := Frame{AckID: &id}
	if reply != nil {
		data, err := c.Marshal(reply)
		if err != nil {
			return nil, fmt.Errorf("encode ack %d: %w", id, err)
		}
		f.Data = data
	}
	return c.EncodeFrame(f)
}

// --- JSON ---

var JSON Codec = jsonCodec{}

type jsonCodec struct{}

type jsonEnvelope struct {
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   *uint64         `json:"ack,omitempty"`
}

func (jsonCodec) Name() string     { return "json" }
func (jsonCodec) MessageType() int { return websocket.TextMessage }

func (jsonCodec) EncodeFrame(f Frame) ([]byte, error) {
	return json.Marshal(jsonEnvelope{Event: f.Event, Data: f.Data, Ack: f.AckID})
}

func (jsonCodec) DecodeFrame(b []byte) (Frame, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Frame{}, fmt.Errorf("json frame: %w", err)
	}
	data := []byte(env.Data)
	if string(data) == "null" {
		data = nil
	}
	return Frame{Event: env.Event, Data: data, AckID: env.Ack}, nil
}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// --- CBOR ---

var CBOR Codec = newCBORCodec()

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

type cborEnvelope struct {
	Event string          `cbor:"event,omitempty"`
	Data  cbor.RawMessage `cbor:"data,omitempty"`
	Ack   *uint64         `cbor:"ack,omitempty"`
}

func newCBORCodec() cborCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("transport: cbor encoder: " + err.Error())
	}
	// Payloads decoded into any must come out as map[string]any so the
	// same event code serves both codecs.
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("transport: cbor decoder: " + err.Error())
	}
	return cborCodec{enc: enc, dec: dec}
}

func (cborCodec) Name() string     { return "cbor" }
func (cborCodec) MessageType() int { return websocket.BinaryMessage }

func (c cborCodec) EncodeFrame(f Frame) ([]byte, error) {
	return c.enc.Marshal(cborEnvelope{Event: f.Event, Data: f.Data, Ack: f.AckID})
}

func (c cborCodec) DecodeFrame(b []byte) (Frame, error) {
	var env cborEnvelope
	if err := c.dec.Unmarshal(b, &env); err != nil {
		return Frame{}, fmt.Errorf("cbor frame: %w", err)
	}
	data := []byte(env.Data)
	// 0xf6 is CBOR null.
	if len(data) == 1 && data[0] == 0xf6 {
		data = nil
	}
	return Frame{Event: env.Event, Data: data, AckID: env.Ack}, nil
}

func (c cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
