// Package transporttest provides an in-process websocket server that
// speaks the channel protocol, for tests of the transport and session.
package transporttest

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beamline-remote/hwr-client/internal/protocol"
	"github.com/beamline-remote/hwr-client/internal/transport"
	"github.com/gorilla/websocket"
)

// Ack is an acknowledgment received from the client.
type Ack struct {
	Channel protocol.Channel
	ID      uint64
	Data    []byte
}

type client struct {
	ch   protocol.Channel
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) writePump(msgType int) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(msgType, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Server accepts connections on /hwr and /logging. Extra handlers can
// be mounted with Handle before clients connect.
type Server struct {
	codec transport.Codec
	srv   *httptest.Server
	mux   *http.ServeMux
	acks  chan Ack

	mu      sync.Mutex
	clients map[*client]bool
	dials   map[protocol.Channel]int
	header  http.Header
	query   string
	nextAck uint64
}

// NewServer starts a server using codec for frames.
func NewServer(codec transport.Codec) *Server {
	s := &Server{
		codec:   codec,
		mux:     http.NewServeMux(),
		acks:    make(chan Ack, 64),
		clients: make(map[*client]bool),
		dials:   make(map[protocol.Channel]int),
	}
	for _, ch := range protocol.Channels {
		s.mux.HandleFunc("/"+string(ch), s.handleWS(ch))
	}
	s.srv = httptest.NewServer(s.mux)
	return s
}

// Handle mounts an HTTP handler next to the websocket endpoints.
func (s *Server) Handle(pattern string, h http.Handler) { s.mux.Handle(pattern, h) }

// URL is the HTTP base URL of the server.
func (s *Server) URL() string { return s.srv.URL }

// Endpoint returns the client-side address of the server.
func (s *Server) Endpoint() transport.Endpoint {
	host, port, _ := net.SplitHostPort(strings.TrimPrefix(s.srv.URL, "http://"))
	p, _ := strconv.Atoi(port)
	return transport.Endpoint{Host: host, Port: p}
}

func (s *Server) Close() {
	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		c.close()
	}
	s.mu.Unlock()
	s.srv.CloseClientConnections()
	s.srv.Close()
}

func (s *Server) handleWS(ch protocol.Channel) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &client{ch: ch, conn: conn, send: make(chan []byte, 64)}
		go c.writePump(s.codec.MessageType())

		s.mu.Lock()
		s.clients[c] = true
		s.dials[ch]++
		s.header = r.Header.Clone()
		s.query = r.URL.RawQuery
		s.mu.Unlock()

		go s.readPump(c)
	}
}

func (s *Server) readPump(c *client) {
	defer s.remove(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := s.codec.DecodeFrame(data)
		if err != nil || f.AckID == nil {
			continue
		}
		s.acks <- Ack{Channel: c.ch, ID: *f.AckID, Data: f.Data}
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	if s.clients[c] {
		delete(s.clients, c)
		c.close()
	}
	s.mu.Unlock()
}

func (s *Server) peers(ch protocol.Channel) []*client {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*client
	for c := range s.clients {
		if c.ch == ch {
			out = append(out, c)
		}
	}
	return out
}

// Emit pushes event to every client on ch. data is encoded with the
// server codec; nil sends an event without payload.
func (s *Server) Emit(ch protocol.Channel, event string, data any) {
	s.broadcast(ch, event, data, nil)
}

// EmitWithAck pushes event and asks for an acknowledgment. It returns
// the ack id to look for in Acks.
func (s *Server) EmitWithAck(ch protocol.Channel, event string, data any) uint64 {
	s.mu.Lock()
	s.nextAck++
	id := s.nextAck
	s.mu.Unlock()
	s.broadcast(ch, event, data, &id)
	return id
}

// EmitRaw sends an already encoded frame.
func (s *Server) EmitRaw(ch protocol.Channel, frame []byte) {
	for _, c := range s.peers(ch) {
		select {
		case c.send <- frame:
		default:
		}
	}
}

func (s *Server) broadcast(ch protocol.Channel, event string, data any, ack *uint64) {
	f := transport.Frame{Event: event, AckID: ack}
	if data != nil {
		b, err := s.codec.Marshal(data)
		if err != nil {
			panic("transporttest: marshal " + event + ": " + err.Error())
		}
		f.Data = b
	}
	frame, err := s.codec.EncodeFrame(f)
	if err != nil {
		panic("transporttest: encode " + event + ": " + err.Error())
	}
	s.EmitRaw(ch, frame)
}

// Acks delivers acknowledgments in arrival order.
func (s *Server) Acks() <-chan Ack { return s.acks }

// Kick closes every connection on ch with a normal close frame, the
// way a server ends a session on purpose.
func (s *Server) Kick(ch protocol.Channel) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	for _, c := range s.peers(ch) {
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
}

// Drop cuts every connection on ch without a close frame.
func (s *Server) Drop(ch protocol.Channel) {
	for _, c := range s.peers(ch) {
		s.remove(c)
		c.conn.UnderlyingConn().Close()
	}
}

// Conns is the number of open connections on ch.
func (s *Server) Conns(ch protocol.Channel) int { return len(s.peers(ch)) }

// Dials is the number of handshakes accepted on ch so far.
func (s *Server) Dials(ch protocol.Channel) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials[ch]
}

// WaitDials polls until ch has accepted at least n handshakes.
func (s *Server) WaitDials(ch protocol.Channel, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Dials(ch) >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return s.Dials(ch) >= n
}

// Handshake returns the headers and raw query of the latest connection.
func (s *Server) Handshake() (http.Header, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header.Clone(), s.query
}

// WaitConns polls until ch has at least n open connections.
func (s *Server) WaitConns(ch protocol.Channel, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Conns(ch) >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return s.Conns(ch) >= n
}
