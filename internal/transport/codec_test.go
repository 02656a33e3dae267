package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/beamline-remote/hwr-client/internal/protocol"
	"github.com/gorilla/websocket"
)

func TestCodecEnvelope(t *testing.T) {
	for _, c := range []Codec{JSON, CBOR} {
		t.Run(c.Name(), func(t *testing.T) {
			payload, err := c.Marshal(map[string]any{"name": "phi", "position": 12.5})
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			id := uint64(7)
			b, err := c.EncodeFrame(Frame{Event: "motor_position", Data: payload, AckID: &id})
			if err != nil {
				t.Fatalf("EncodeFrame: %v", err)
			}

			f, err := c.DecodeFrame(b)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if f.Event != "motor_position" || f.AckID == nil || *f.AckID != 7 {
				t.Fatalf("frame = %+v", f)
			}

			ev, err := protocol.Decode(c, protocol.Hardware, f.Event, f.Data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			mp := ev.(*protocol.MotorPosition)
			if mp.Name != "phi" || mp.Position != 12.5 {
				t.Errorf("event = %+v", mp)
			}
		})
	}
}

func TestCodecNullPayload(t *testing.T) {
	for _, c := range []Codec{JSON, CBOR} {
		t.Run(c.Name(), func(t *testing.T) {
			null, err := c.Marshal(nil)
			if err != nil {
				t.Fatalf("Marshal(nil): %v", err)
			}
			b, err := c.EncodeFrame(Frame{Event: "workflowParametersDialog", Data: null})
			if err != nil {
				t.Fatalf("EncodeFrame: %v", err)
			}
			f, err := c.DecodeFrame(b)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if f.Data != nil {
				t.Errorf("Data = %x, want nil", f.Data)
			}
			if f.AckID != nil {
				t.Errorf("AckID = %v, want nil", *f.AckID)
			}
		})
	}
}

func TestEncodeAck(t *testing.T) {
	for _, c := range []Codec{JSON, CBOR} {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := EncodeAck(c, 3, "data:image/png;base64,AA==")
			if err != nil {
				t.Fatalf("EncodeAck: %v", err)
			}
			f, err := c.DecodeFrame(b)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if f.Event != "" || f.AckID == nil || *f.AckID != 3 {
				t.Fatalf("frame = %+v", f)
			}
			var reply string
			if err := c.Unmarshal(f.Data, &reply); err != nil {
				t.Fatalf("Unmarshal reply: %v", err)
			}
			if reply != "data:image/png;base64,AA==" {
				t.Errorf("reply = %q", reply)
			}

			bare, err := EncodeAck(c, 4, nil)
			if err != nil {
				t.Fatalf("EncodeAck(nil): %v", err)
			}
			f, _ = c.DecodeFrame(bare)
			if f.Data != nil || f.AckID == nil || *f.AckID != 4 {
				t.Errorf("bare ack = %+v", f)
			}
		})
	}
}

func TestCBORDecodesMapsWithStringKeys(t *testing.T) {
	b, err := CBOR.Marshal(map[string]any{"name": "beamstop", "value": map[string]any{"x": 1}})
	if err != nil {
		t.Fatal(err)
	}
	ev, err := protocol.Decode(CBOR, protocol.Hardware, "hardware_object_changed", b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	data := ev.(*protocol.HardwareObjectChanged).Data
	if _, ok := data["value"].(map[string]any); !ok {
		t.Errorf("nested value is %T, want map[string]any", data["value"])
	}
}

func TestNewCodec(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "json", false},
		{"json", "json", false},
		{"cbor", "cbor", false},
		{"msgpack", "", true},
	}
	for _, tt := range tests {
		c, err := NewCodec(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewCodec(%q) succeeded", tt.name)
			}
			continue
		}
		if err != nil || c.Name() != tt.want {
			t.Errorf("NewCodec(%q) = %v, %v", tt.name, c, err)
		}
	}
	if JSON.MessageType() != websocket.TextMessage || CBOR.MessageType() != websocket.BinaryMessage {
		t.Error("unexpected frame types")
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestDisconnectReason(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want string
	}{
		{"normal close", context.Background(), &websocket.CloseError{Code: websocket.CloseNormalClosure}, ReasonServerDisconnect},
		{"going away", context.Background(), &websocket.CloseError{Code: websocket.CloseGoingAway}, ReasonTransportClose},
		{"abnormal", context.Background(), &websocket.CloseError{Code: websocket.CloseAbnormalClosure}, ReasonTransportClose},
		{"read deadline", context.Background(), fmt.Errorf("read: %w", timeoutError{}), ReasonPingTimeout},
		{"other", context.Background(), io.ErrClosedPipe, ReasonTransportError},
		{"local close", cancelled, errors.New("use of closed network connection"), ReasonClientDisconnect},
		{"local close wins over close frame", cancelled, &websocket.CloseError{Code: websocket.CloseNormalClosure}, ReasonClientDisconnect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := disconnectReason(tt.ctx, tt.err); got != tt.want {
				t.Errorf("disconnectReason = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		ep   Endpoint
		ch   protocol.Channel
		want string
	}{
		{Endpoint{Host: "localhost", Port: 8081}, protocol.Hardware, "ws://localhost:8081/hwr"},
		{Endpoint{Host: "bl.example", Port: 443, Secure: true}, protocol.Logging, "wss://bl.example:443/logging"},
		{Endpoint{Host: "h", Port: 1, Token: "a b"}, protocol.Hardware, "ws://h:1/hwr?token=a+b"},
	}
	for _, tt := range tests {
		if got := tt.ep.URL(tt.ch); got != tt.want {
			t.Errorf("URL = %q, want %q", got, tt.want)
		}
	}
}
