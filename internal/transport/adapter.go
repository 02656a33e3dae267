// Package transport keeps the hardware and logging channels open over
// websockets and turns their traffic into an ordered stream of signals.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/beamline-remote/hwr-client/internal/protocol"
	"github.com/gorilla/websocket"
)

// SessionHeader carries the client session id on every handshake.
const SessionHeader = "X-Client-Session"

// Endpoint locates the server and identifies this client to it.
type Endpoint struct {
	Host      string
	Port      int
	Secure    bool
	Token     string
	SessionID string
}

// URL returns the websocket address of ch.
func (e Endpoint) URL(ch protocol.Channel) string {
	u := url.URL{
		Scheme: "ws",
		Host:   e.Host + ":" + strconv.Itoa(e.Port),
		Path:   "/" + string(ch),
	}
	if e.Secure {
		u.Scheme = "wss"
	}
	if e.Token != "" {
		u.RawQuery = url.Values{"token": {e.Token}}.Encode()
	}
	return u.String()
}

func (e Endpoint) header() http.Header {
	h := http.Header{}
	if e.SessionID != "" {
		h.Set(SessionHeader, e.SessionID)
	}
	if e.Token != "" {
		h.Set("Authorization", "Bearer "+e.Token)
	}
	return h
}

// Adapter owns both channels of a session.
type Adapter struct {
	endpoint Endpoint
	codec    Codec
	opts     Options
	logger   *slog.Logger
	signals  chan Signal

	mu        sync.Mutex
	life      context.Context
	channels  map[protocol.Channel]*channel
	connected bool
}

// NewAdapter prepares an adapter; nothing is dialed until Connect.
func NewAdapter(endpoint Endpoint, codec Codec, opts Options, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		endpoint: endpoint,
		codec:    codec,
		opts:     opts,
		logger:   logger,
		signals:  make(chan Signal, 256),
	}
}

// Signals is the merged stream of both channels. It is never closed.
func (a *Adapter) Signals() <-chan Signal { return a.signals }

// Codec is the wire format the adapter was built with.
func (a *Adapter) Codec() Codec { return a.codec }

// Connect opens both channels. The first call builds them; later calls
// only reopen channels that are down. ctx bounds the adapter's lifetime
// until it ends; a later Connect then adopts its own ctx.
func (a *Adapter) Connect(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.channels == nil {
		a.channels = make(map[protocol.Channel]*channel, len(protocol.Channels))
		dialer := &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: a.opts.WriteTimeout,
		}
		for _, name := range protocol.Channels {
			a.channels[name] = &channel{
				name:   name,
				url:    a.endpoint.URL(name),
				header: a.endpoint.header(),
				codec:  a.codec,
				opts:   a.opts,
				dialer: dialer,
				logger: a.logger,
				emit:   a.emit,
			}
		}
	}
	expired := a.life == nil || a.life.Err() != nil
	if expired {
		a.life = ctx
	}
	a.connected = true
	for _, name := range protocol.Channels {
		c := a.channels[name]
		if expired {
			// Loops bound to the old lifetime may not have wound down yet.
			c.close()
		}
		c.open(a.life)
	}
}

// Reopen restarts one channel after the server closed it. It does
// nothing after Disconnect or before Connect.
func (a *Adapter) Reopen(ch protocol.Channel) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return
	}
	if c, ok := a.channels[ch]; ok {
		c.open(a.life)
	}
}

// Disconnect closes both channels. Safe to call repeatedly.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	a.connected = false
	chans := make([]*channel, 0, len(a.channels))
	for _, c := range a.channels {
		chans = append(chans, c)
	}
	a.mu.Unlock()

	for _, c := range chans {
		c.close()
	}
}

// Ack answers the frame that carried id. A nil reply is a bare ack.
func (a *Adapter) Ack(ch protocol.Channel, id uint64, reply any) error {
	a.mu.Lock()
	c, ok := a.channels[ch]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("ack on %s: %w", ch, errNotConnected)
	}
	data, err := EncodeAck(a.codec, id, reply)
	if err != nil {
		return err
	}
	if err := c.write(data); err != nil {
		return fmt.Errorf("ack %d on %s: %w", id, ch, err)
	}
	return nil
}

func (a *Adapter) emit(s Signal) {
	a.mu.Lock()
	life := a.life
	a.mu.Unlock()
	select {
	case a.signals <- s:
	case <-life.Done():
	}
}
