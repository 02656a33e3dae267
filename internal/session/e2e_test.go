package session

import (
	"context"
	"testing"
	"time"

	"github.com/beamline-remote/hwr-client/internal/clock"
	"github.com/beamline-remote/hwr-client/internal/config"
	"github.com/beamline-remote/hwr-client/internal/protocol"
	"github.com/beamline-remote/hwr-client/internal/state"
	"github.com/beamline-remote/hwr-client/internal/supervisor"
	"github.com/beamline-remote/hwr-client/internal/transport"
	"github.com/beamline-remote/hwr-client/internal/transport/transporttest"
)

func TestEndToEnd(t *testing.T) {
	for _, codec := range []transport.Codec{transport.JSON, transport.CBOR} {
		t.Run(codec.Name(), func(t *testing.T) { runEndToEnd(t, codec) })
	}
}

func runEndToEnd(t *testing.T, codec transport.Codec) {
	srv := transporttest.NewServer(codec)
	t.Cleanup(srv.Close)

	opts := transport.DefaultOptions()
	opts.ReconnectBaseDelay = 10 * time.Millisecond
	adapter := transport.NewAdapter(srv.Endpoint(), codec, opts, nil)

	store := state.NewStore()
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	s := New(config.Default().Session, Deps{
		Transport: adapter,
		API:       newFakeAPI(),
		Sink:      store,
		Clock:     clk,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
	})

	for _, ch := range protocol.Channels {
		if !srv.WaitConns(ch, 1, waitTimeout) {
			t.Fatalf("%s never connected", ch)
		}
	}
	waitFor(t, "hwr connected", func() bool {
		return s.Status(protocol.Hardware).Status == supervisor.Connected
	})

	// Events flow into the store.
	srv.Emit(protocol.Logging, "log_record", map[string]any{"severity": "ERROR", "message": "detector fault"})
	waitFor(t, "user message", func() bool {
		msgs := store.Snapshot().UserMessages
		return len(msgs) == 1 && msgs[0].Message() == "detector fault"
	})

	// Acknowledged task report on a node the queue fetch created.
	waitFor(t, "queue entries", func() bool {
		_, ok := store.Collapsed("Q2")
		return ok
	})
	id := srv.EmitWithAck(protocol.Hardware, "task", map[string]any{
		"queueID": "Q2", "taskIndex": 0, "state": 1, "sample": "1:01", "progress": 0.5,
	})
	select {
	case ack := <-srv.Acks():
		if ack.ID != id {
			t.Errorf("ack id = %d, want %d", ack.ID, id)
		}
	case <-time.After(waitTimeout):
		t.Fatal("task was not acknowledged")
	}
	waitFor(t, "task collapsed", func() bool {
		c, _ := store.Collapsed("Q2")
		return c
	})

	// The server ends the hwr channel on purpose: one reopen after the
	// reconnect delay and no connection-lost notice.
	srv.Kick(protocol.Hardware)
	waitFor(t, "timers armed", func() bool { return clk.Pending() == 2 })
	clk.Advance(500 * time.Millisecond)
	if !srv.WaitDials(protocol.Hardware, 2, waitTimeout) {
		t.Fatal("hwr was not reopened")
	}
	waitFor(t, "hwr reconnected", func() bool {
		return s.Status(protocol.Hardware).Status == supervisor.Connected
	})
	waitFor(t, "debounce cancelled", func() bool { return clk.Pending() == 0 })
	clk.Advance(5 * time.Second)
	if store.Snapshot().ConnectionLost {
		t.Error("connection-lost notice shown after a quick reconnect")
	}
}
