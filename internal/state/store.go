package state

import (
	"slices"
	"sync"
)

// View is the read side the event handlers depend on.
type View interface {
	User() User
	Observers() []Observer
	// Collapsed reports the display flag for a queue node and whether
	// the node has a display entry at all.
	Collapsed(queueID string) (collapsed, ok bool)
}

// Sink is a View that also accepts mutations.
type Sink interface {
	View
	Apply(ms ...Mutation)
}

// Store is an in-memory Sink. Reads return copies, and subscribers are
// told about every applied mutation after the write lock is released.
type Store struct {
	mu   sync.RWMutex
	data Data

	subMu   sync.Mutex
	subs    map[int]func(Mutation)
	nextSub int
}

func NewStore() *Store {
	return &Store{
		data: newData(),
		subs: make(map[int]func(Mutation)),
	}
}

func (s *Store) Apply(ms ...Mutation) {
	if len(ms) == 0 {
		return
	}
	s.mu.Lock()
	for _, m := range ms {
		m.apply(&s.data)
	}
	s.mu.Unlock()

	s.subMu.Lock()
	subs := make([]func(Mutation), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, m := range ms {
		for _, fn := range subs {
			fn(m)
		}
	}
}

// Subscribe registers fn to be called after each applied mutation. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(Mutation)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.clone()
}

func (s *Store) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Login.User
}

func (s *Store) Observers() []Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.Observers)
}

func (s *Store) Collapsed(queueID string) (bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data.Display[queueID]
	return e.Collapsed, ok
}

// Task returns the task record for a queue id.
func (s *Store) Task(queueID string) (TaskRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data.Tasks[queueID]
	return rec, ok
}

func (s *Store) WaitDialog() (WaitDialogRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.WaitDialog == nil {
		return WaitDialogRequest{}, false
	}
	return *s.data.WaitDialog, true
}
