// Package supervisor tracks the connectivity of each channel and owns
// the two recovery timers: the forced reconnect after a server-side
// disconnect and the debounced connection-lost notice.
package supervisor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/beamline-remote/hwr-client/internal/clock"
	"github.com/beamline-remote/hwr-client/internal/protocol"
	"github.com/beamline-remote/hwr-client/internal/transport"
)

type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Handle is the externally visible state of one channel.
type Handle struct {
	Channel    protocol.Channel
	Status     Status
	LastReason string
}

// Timing holds the recovery delays.
type Timing struct {
	// ReconnectDelay is how long after a server-side disconnect the
	// channel is reopened.
	ReconnectDelay time.Duration
	// ConnectionLostDelay is how long the primary channel may stay down
	// before the user is told.
	ConnectionLostDelay time.Duration
}

// DefaultTiming is 500 ms to reconnect and 2 s before the notice.
func DefaultTiming() Timing {
	return Timing{
		ReconnectDelay:      500 * time.Millisecond,
		ConnectionLostDelay: 2 * time.Second,
	}
}

type channelState struct {
	Handle
	reconnect clock.Timer
	armed     uint64
}

// Supervisor is safe for concurrent use. Callbacks run without the
// supervisor's lock held, either on the caller's goroutine or on the
// clock's timer goroutine.
type Supervisor struct {
	clock   clock.Clock
	timing  Timing
	primary protocol.Channel
	logger  *slog.Logger

	reconnect func(protocol.Channel)
	notify    func(lost bool)

	// noticeMu is held from deciding a connection-lost notice until it
	// is delivered, so notices reach notify in decision order. It is
	// taken before mu.
	noticeMu sync.Mutex

	mu        sync.Mutex
	channels  map[protocol.Channel]*channelState
	lost      clock.Timer
	lostArmed uint64
	seq       uint64
	shown     bool
	stopped   bool
}

// New returns a supervisor for protocol.Channels. reconnect reopens a
// channel; notify raises (true) or clears (false) the connection-lost
// notice. The hardware channel is the primary one.
func New(clk clock.Clock, timing Timing, reconnect func(protocol.Channel), notify func(lost bool), logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supervisor{
		clock:     clk,
		timing:    timing,
		primary:   protocol.Hardware,
		logger:    logger,
		reconnect: reconnect,
		notify:    notify,
		channels:  make(map[protocol.Channel]*channelState),
	}
	for _, ch := range protocol.Channels {
		s.channels[ch] = &channelState{Handle: Handle{Channel: ch}}
	}
	return s
}

func (s *Supervisor) state(ch protocol.Channel) *channelState {
	cs, ok := s.channels[ch]
	if !ok {
		cs = &channelState{Handle: Handle{Channel: ch}}
		s.channels[ch] = cs
	}
	return cs
}

// Status returns a copy of the channel's handle.
func (s *Supervisor) Status(ch protocol.Channel) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(ch).Handle
}

func (s *Supervisor) Connecting(ch protocol.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(ch).Status = Connecting
}

// Connected cancels any pending reconnect for ch. For the primary
// channel it also cancels the connection-lost debounce and clears the
// notice.
func (s *Supervisor) Connected(ch protocol.Channel) {
	s.noticeMu.Lock()
	defer s.noticeMu.Unlock()

	s.mu.Lock()
	cs := s.state(ch)
	cs.Status = Connected
	if cs.reconnect != nil {
		cs.reconnect.Stop()
		cs.reconnect = nil
	}
	primary := ch == s.primary && !s.stopped
	if primary {
		if s.lost != nil {
			s.lost.Stop()
			s.lost = nil
		}
		s.shown = false
	}
	s.mu.Unlock()

	if primary {
		s.notify(false)
	}
}

// Disconnected records reason. A server-side disconnect schedules one
// reopen; losing the primary channel while it was connected starts the
// connection-lost debounce.
func (s *Supervisor) Disconnected(ch protocol.Channel, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs := s.state(ch)
	wasConnected := cs.Status == Connected
	cs.Status = Disconnected
	cs.LastReason = reason
	if s.stopped {
		return
	}

	if reason == transport.ReasonServerDisconnect {
		if cs.reconnect != nil {
			cs.reconnect.Stop()
		}
		s.seq++
		token := s.seq
		cs.armed = token
		cs.reconnect = s.clock.AfterFunc(s.timing.ReconnectDelay, func() { s.fireReconnect(ch, token) })
		s.logger.Info("server closed channel, reconnecting",
			"channel", string(ch), "delay", s.timing.ReconnectDelay)
	}

	if ch == s.primary && wasConnected && s.lost == nil {
		s.seq++
		token := s.seq
		s.lostArmed = token
		s.lost = s.clock.AfterFunc(s.timing.ConnectionLostDelay, func() { s.fireLost(token) })
	}
}

func (s *Supervisor) fireReconnect(ch protocol.Channel, token uint64) {
	s.mu.Lock()
	cs := s.state(ch)
	if s.stopped || cs.armed != token || cs.reconnect == nil {
		s.mu.Unlock()
		return
	}
	cs.reconnect = nil
	s.mu.Unlock()

	s.reconnect(ch)
}

func (s *Supervisor) fireLost(token uint64) {
	s.noticeMu.Lock()
	defer s.noticeMu.Unlock()

	s.mu.Lock()
	if s.stopped || s.lostArmed != token || s.lost == nil {
		s.mu.Unlock()
		return
	}
	s.lost = nil
	if s.state(s.primary).Status == Connected || s.shown {
		s.mu.Unlock()
		return
	}
	s.shown = true
	s.mu.Unlock()

	s.logger.Warn("connection lost", "channel", string(s.primary))
	s.notify(true)
}

// Stop cancels every pending timer. Later signals only update status.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for _, cs := range s.channels {
		if cs.reconnect != nil {
			cs.reconnect.Stop()
			cs.reconnect = nil
		}
	}
	if s.lost != nil {
		s.lost.Stop()
		s.lost = nil
	}
}

// Pending reports whether a reconnect for ch or the connection-lost
// debounce is scheduled.
func (s *Supervisor) Pending(ch protocol.Channel) (reconnect, lost bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(ch).reconnect != nil, ch == s.primary && s.lost != nil
}
