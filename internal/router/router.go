// Package router maps each decoded event to the state changes, side
// effects and acknowledgment reply it produces.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/beamline-remote/hwr-client/internal/protocol"
	"github.com/beamline-remote/hwr-client/internal/snapshot"
	"github.com/beamline-remote/hwr-client/internal/state"
)

// Result is everything a handler wants done. The session acknowledges
// with Reply first, then applies Mutations in order, then starts Effects.
type Result struct {
	Mutations []state.Mutation
	Effects   []state.Effect
	// Reply is the acknowledgment payload; nil acknowledges bare.
	Reply any
}

func (r Result) empty() bool {
	return len(r.Mutations) == 0 && len(r.Effects) == 0 && r.Reply == nil
}

func mutate(ms ...state.Mutation) Result { return Result{Mutations: ms} }

func effect(es ...state.Effect) Result { return Result{Effects: es} }

// LoginSource answers the authoritative login refresh.
type LoginSource interface {
	LoginInfo(ctx context.Context) (state.LoginInfo, error)
}

// Handler processes one event.
type Handler func(ctx context.Context, ev protocol.Event) Result

type key struct {
	ch   protocol.Channel
	kind protocol.Kind
}

const defaultLoginTimeout = 10 * time.Second

// Router holds the static dispatch table of a session.
type Router struct {
	view         state.View
	login        LoginSource
	loginTimeout time.Duration
	camera       snapshot.Source
	logger       *slog.Logger
	table        map[key]Handler
}

// New builds the table. loginTimeout bounds the login refresh that
// blocks dispatch on userChanged. It panics if a handler is registered
// twice or a declared event has none.
func New(view state.View, login LoginSource, loginTimeout time.Duration, camera snapshot.Source, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if loginTimeout <= 0 {
		loginTimeout = defaultLoginTimeout
	}
	if camera == nil {
		camera = snapshot.FileSource{}
	}
	r := &Router{
		view:         view,
		login:        login,
		loginTimeout: loginTimeout,
		camera:       camera,
		logger:       logger,
		table:        make(map[key]Handler),
	}
	r.register()

	for _, ch := range protocol.Channels {
		for _, kind := range protocol.Kinds(ch) {
			if _, ok := r.table[key{ch, kind}]; !ok {
				panic(fmt.Sprintf("router: no handler for %s/%s", ch, kind))
			}
		}
	}
	return r
}

// on registers h for kind on ch. E is the concrete event type Decode
// produces for that kind.
func on[E protocol.Event](r *Router, ch protocol.Channel, kind protocol.Kind, h func(context.Context, E) Result) {
	k := key{ch, kind}
	if _, dup := r.table[k]; dup {
		panic(fmt.Sprintf("router: duplicate handler for %s/%s", ch, kind))
	}
	if !protocol.Declared(ch, kind) {
		panic(fmt.Sprintf("router: %s/%s is not a declared event", ch, kind))
	}
	r.table[k] = func(ctx context.Context, ev protocol.Event) Result {
		e, ok := ev.(E)
		if !ok {
			r.logger.Error("event type mismatch", "channel", string(ch), "event", string(kind), "type", fmt.Sprintf("%T", ev))
			return Result{}
		}
		return h(ctx, e)
	}
}

// Dispatch runs the handler for ev. Events without a handler are
// ignored.
func (r *Router) Dispatch(ctx context.Context, ch protocol.Channel, ev protocol.Event) Result {
	h, ok := r.table[key{ch, ev.Kind()}]
	if !ok {
		r.logger.Debug("ignoring event", "channel", string(ch), "event", string(ev.Kind()))
		return Result{}
	}
	return h(ctx, ev)
}
