package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/beamline-remote/hwr-client/internal/protocol"
	"github.com/gorilla/websocket"
)

// Disconnect reasons reported in Signal.Reason.
const (
	// ReasonServerDisconnect means the server closed the channel on
	// purpose. The channel stays down until it is reopened.
	ReasonServerDisconnect = "io server disconnect"
	ReasonClientDisconnect = "io client disconnect"
	ReasonTransportClose   = "transport close"
	ReasonPingTimeout      = "ping timeout"
	ReasonTransportError   = "transport error"
)

// SignalKind says what happened on a channel.
type SignalKind int

const (
	SignalConnecting SignalKind = iota
	SignalConnected
	SignalDisconnected
	SignalEvent
)

func (k SignalKind) String() string {
	switch k {
	case SignalConnecting:
		return "connecting"
	case SignalConnected:
		return "connected"
	case SignalDisconnected:
		return "disconnected"
	case SignalEvent:
		return "event"
	}
	return fmt.Sprintf("SignalKind(%d)", int(k))
}

// Signal is one connectivity change or inbound frame. Signals from one
// channel arrive in order; there is no ordering between channels.
type Signal struct {
	Channel protocol.Channel
	Kind    SignalKind
	Reason  string
	Frame   Frame
}

// Options tunes keepalive and redial behaviour.
type Options struct {
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	PingInterval       time.Duration
	PongTimeout        time.Duration
	WriteTimeout       time.Duration
}

// DefaultOptions matches the server's socket settings.
func DefaultOptions() Options {
	return Options{
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  30 * time.Second,
		PingInterval:       30 * time.Second,
		PongTimeout:        60 * time.Second,
		WriteTimeout:       10 * time.Second,
	}
}

var errNotConnected = errors.New("not connected")

// channel is one auto-redialing websocket connection.
type channel struct {
	name   protocol.Channel
	url    string
	header http.Header
	codec  Codec
	opts   Options
	dialer *websocket.Dialer
	logger *slog.Logger

	// emit delivers a signal, giving up when the session ends.
	emit func(Signal)

	mu      sync.Mutex
	writeMu sync.Mutex // serialises all conn writes (ping, ack, close)
	conn    *websocket.Conn
	cancel  context.CancelFunc
	gen     uint64
}

func (c *channel) running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// open starts the dial loop unless it is already running.
func (c *channel) open(life context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(life)
	c.cancel = cancel
	c.gen++
	go c.run(ctx, c.gen)
}

// close stops the dial loop and closes the connection with a normal
// close frame. The loop reports ReasonClientDisconnect.
func (c *channel) close() {
	c.mu.Lock()
	cancel, conn := c.cancel, c.conn
	c.cancel = nil
	c.gen++
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.opts.WriteTimeout))
		c.writeMu.Unlock()
		conn.Close()
	}
}

// finish marks the loop for gen as stopped, unless close or a newer
// open already replaced it.
func (c *channel) finish(gen uint64) {
	c.mu.Lock()
	if c.gen == gen && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
}

func (c *channel) run(ctx context.Context, gen uint64) {
	log := c.logger.With("channel", string(c.name))
	delay := c.opts.ReconnectBaseDelay
	up := false // whether the last emitted status was not Disconnected

	stop := func(reason string) {
		c.finish(gen)
		if up {
			c.emit(Signal{Channel: c.name, Kind: SignalDisconnected, Reason: reason})
		}
	}

	for {
		if ctx.Err() != nil {
			stop(ReasonClientDisconnect)
			return
		}

		c.emit(Signal{Channel: c.name, Kind: SignalConnecting})
		up = true
		conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			if ctx.Err() != nil {
				stop(ReasonClientDisconnect)
				return
			}
			log.Warn("dial failed", "url", c.url, "error", err, "retry_in", delay)
			c.emit(Signal{Channel: c.name, Kind: SignalDisconnected, Reason: ReasonTransportError})
			up = false
			if !sleep(ctx, delay) {
				c.finish(gen)
				return
			}
			delay = min(delay*2, c.opts.ReconnectMaxDelay)
			continue
		}

		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			conn.Close()
			stop(ReasonClientDisconnect)
			return
		}
		c.conn = conn
		c.mu.Unlock()

		delay = c.opts.ReconnectBaseDelay
		log.Info("channel connected", "url", c.url)
		c.emit(Signal{Channel: c.name, Kind: SignalConnected})

		pingCtx, pingCancel := context.WithCancel(ctx)
		go c.pingLoop(pingCtx, conn)
		unwatch := context.AfterFunc(ctx, func() { conn.Close() })
		reason := c.readLoop(ctx, conn)
		unwatch()
		pingCancel()

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()

		log.Info("channel disconnected", "reason", reason)
		switch reason {
		case ReasonServerDisconnect, ReasonClientDisconnect:
			stop(reason)
			return
		}
		c.emit(Signal{Channel: c.name, Kind: SignalDisconnected, Reason: reason})
		up = false
		if !sleep(ctx, delay) {
			c.finish(gen)
			return
		}
		delay = min(delay*2, c.opts.ReconnectMaxDelay)
	}
}

// readLoop forwards frames until the connection fails and returns the
// disconnect reason.
func (c *channel) readLoop(ctx context.Context, conn *websocket.Conn) string {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})
	conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return disconnectReason(ctx, err)
		}
		conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))

		f, err := c.codec.DecodeFrame(data)
		if err != nil {
			c.logger.Warn("dropping malformed frame", "channel", string(c.name), "error", err)
			continue
		}
		if f.Event == "" {
			continue
		}
		c.emit(Signal{Channel: c.name, Kind: SignalEvent, Frame: f})
	}
}

func disconnectReason(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return ReasonClientDisconnect
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Code == websocket.CloseNormalClosure {
			return ReasonServerDisconnect
		}
		return ReasonTransportClose
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonPingTimeout
	}
	return ReasonTransportError
}

// pingLoop sends periodic pings on conn until ctx is cancelled or a
// write fails.
func (c *channel) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *channel) write(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%s: %w", c.name, errNotConnected)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	return conn.WriteMessage(c.codec.MessageType(), data)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
