// Package session runs one client session: it owns the transport,
// supervises connectivity, routes events and applies their results to
// the state sink from a single dispatch loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/beamline-remote/hwr-client/internal/clock"
	"github.com/beamline-remote/hwr-client/internal/config"
	"github.com/beamline-remote/hwr-client/internal/protocol"
	"github.com/beamline-remote/hwr-client/internal/router"
	"github.com/beamline-remote/hwr-client/internal/snapshot"
	"github.com/beamline-remote/hwr-client/internal/state"
	"github.com/beamline-remote/hwr-client/internal/supervisor"
	"github.com/beamline-remote/hwr-client/internal/transport"
	"github.com/google/uuid"
)

// ErrSignedOut is returned by Run when the server forced a sign-out.
var ErrSignedOut = errors.New("signed out by server")

// Transport is the channel pair a session drives. *transport.Adapter
// implements it.
type Transport interface {
	Signals() <-chan transport.Signal
	Codec() transport.Codec
	Connect(ctx context.Context)
	Reopen(ch protocol.Channel)
	Disconnect()
	Ack(ch protocol.Channel, id uint64, reply any) error
}

// API is the set of REST calls effects need. *api.Client implements it.
type API interface {
	router.LoginSource
	RemoteAccess(ctx context.Context) (state.RemoteAccess, error)
	Queue(ctx context.Context) (map[string]any, error)
	SampleChangerContents(ctx context.Context) (map[string]any, error)
	HarvesterContents(ctx context.Context) (map[string]any, error)
	StopQueue(ctx context.Context) error
	SignOut(ctx context.Context) error
}

// Deps are the collaborators of a session. Clock, Camera and Logger
// are optional.
type Deps struct {
	ID        string
	Transport Transport
	API       API
	Sink      state.Sink
	Camera    snapshot.Source
	Clock     clock.Clock
	Logger    *slog.Logger
}

type Session struct {
	id             string
	transport      Transport
	api            API
	sink           state.Sink
	router         *router.Router
	supervisor     *supervisor.Supervisor
	logger         *slog.Logger
	requestTimeout time.Duration

	wake chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	posted []func()
	ctx    context.Context
	closed bool

	signedOut bool // dispatch loop only
}

// New wires a session. Nothing connects until Run.
func New(cfg config.SessionConfig, deps Deps) *Session {
	id := deps.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", id)
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}

	timing := supervisor.DefaultTiming()
	if cfg.ReconnectDelay > 0 {
		timing.ReconnectDelay = cfg.ReconnectDelay
	}
	if cfg.ConnectionLostDelay > 0 {
		timing.ConnectionLostDelay = cfg.ConnectionLostDelay
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &Session{
		id:             id,
		transport:      deps.Transport,
		api:            deps.API,
		sink:           deps.Sink,
		logger:         logger,
		requestTimeout: timeout,
		wake:           make(chan struct{}, 1),
		ctx:            context.Background(),
	}
	s.router = router.New(deps.Sink, deps.API, timeout, deps.Camera, logger)
	s.supervisor = supervisor.New(clk, timing, deps.Transport.Reopen, s.notifyConnectionLost, logger)
	return s
}

func (s *Session) ID() string { return s.id }

// Status reports the connectivity of ch.
func (s *Session) Status(ch protocol.Channel) supervisor.Handle {
	return s.supervisor.Status(ch)
}

// Run connects and dispatches until ctx ends or the server signs the
// user out. It closes the channels and waits for running effects
// before returning.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	defer func() {
		s.supervisor.Stop()
		s.transport.Disconnect()
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		cancel()
		s.wg.Wait()
	}()

	s.logger.Info("session starting")
	s.transport.Connect(ctx)
	s.Perform(state.FetchLoginInfo)
	s.Perform(state.FetchRemoteAccess)
	s.Perform(state.FetchQueue)

	signals := s.transport.Signals()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session stopped")
			return nil
		case sig := <-signals:
			s.handle(ctx, sig)
		case <-s.wake:
			if s.drain() {
				s.logger.Info("session signed out")
				return ErrSignedOut
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, sig transport.Signal) {
	switch sig.Kind {
	case transport.SignalConnecting:
		s.supervisor.Connecting(sig.Channel)
	case transport.SignalConnected:
		s.supervisor.Connected(sig.Channel)
	case transport.SignalDisconnected:
		s.supervisor.Disconnected(sig.Channel, sig.Reason)
	case transport.SignalEvent:
		s.dispatch(ctx, sig.Channel, sig.Frame)
	}
}

// dispatch decodes and routes one frame. The acknowledgment goes out
// before any mutation is applied, and also when the handler fails.
func (s *Session) dispatch(ctx context.Context, ch protocol.Channel, f transport.Frame) {
	log := s.logger.With("channel", string(ch), "event", f.Event)

	var res router.Result
	ev, err := protocol.Decode(s.transport.Codec(), ch, f.Event, f.Data)
	switch {
	case errors.Is(err, protocol.ErrUnknownEvent):
		log.Debug("ignoring unknown event")
	case err != nil:
		log.Warn("dropping undecodable event", "error", err)
	default:
		res = s.route(ctx, ch, ev)
	}

	if f.AckID != nil {
		if err := s.transport.Ack(ch, *f.AckID, res.Reply); err != nil {
			log.Warn("ack failed", "error", err)
		}
	}
	s.sink.Apply(res.Mutations...)
	for _, e := range res.Effects {
		s.Perform(e)
	}
}

func (s *Session) route(ctx context.Context, ch protocol.Channel, ev protocol.Event) (res router.Result) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("event handler panicked", "channel", string(ch), "event", string(ev.Kind()), "panic", fmt.Sprint(p))
			res = router.Result{}
		}
	}()
	return s.router.Dispatch(ctx, ch, ev)
}

// Perform runs e off the dispatch loop and applies what it fetched on
// the loop. It is how dialog actions such as stopping the queue are
// carried out.
func (s *Session) Perform(e state.Effect) {
	if e == state.NoEffect {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()

		ms, err := s.perform(ctx, e)
		if err != nil {
			s.logger.Warn("effect failed", "effect", e.String(), "error", err)
		}
		if e == state.SignOut {
			s.post(func() {
				s.sink.Apply(state.SignedOut{})
				s.signedOut = true
			})
			return
		}
		if len(ms) > 0 {
			s.post(func() { s.sink.Apply(ms...) })
		}
	}()
}

func (s *Session) perform(ctx context.Context, e state.Effect) ([]state.Mutation, error) {
	switch e {
	case state.FetchLoginInfo:
		info, err := s.api.LoginInfo(ctx)
		if err != nil {
			return nil, err
		}
		return []state.Mutation{state.SetLoginInfo{Info: info}}, nil
	case state.FetchQueue:
		q, err := s.api.Queue(ctx)
		if err != nil {
			return nil, err
		}
		return []state.Mutation{state.SetQueue{Queue: q}}, nil
	case state.FetchRemoteAccess:
		ra, err := s.api.RemoteAccess(ctx)
		if err != nil {
			return nil, err
		}
		return []state.Mutation{state.SetRemoteAccess{State: ra}}, nil
	case state.FetchSampleChangerContents:
		c, err := s.api.SampleChangerContents(ctx)
		if err != nil {
			return nil, err
		}
		return []state.Mutation{state.SetSampleChangerContents{Contents: c}}, nil
	case state.FetchHarvesterContents:
		c, err := s.api.HarvesterContents(ctx)
		if err != nil {
			return nil, err
		}
		return []state.Mutation{state.SetHarvesterContents{Contents: c}}, nil
	case state.StopQueue:
		return nil, s.api.StopQueue(ctx)
	case state.SignOut:
		return nil, s.api.SignOut(ctx)
	}
	return nil, fmt.Errorf("unknown effect %v", e)
}

// post queues fn for the dispatch loop. It never blocks, so timer
// callbacks and the loop itself may call it.
func (s *Session) post(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.posted = append(s.posted, fn)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// drain runs posted work and reports whether the session was signed out.
func (s *Session) drain() bool {
	s.mu.Lock()
	fns := s.posted
	s.posted = nil
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return s.signedOut
}

func (s *Session) notifyConnectionLost(lost bool) {
	s.post(func() { s.sink.Apply(state.ShowConnectionLost{Show: lost}) })
}

// Apply queues local state changes, such as dismissing a dialog, on the
// dispatch loop.
func (s *Session) Apply(ms ...state.Mutation) {
	if len(ms) == 0 {
		return
	}
	s.post(func() { s.sink.Apply(ms...) })
}
