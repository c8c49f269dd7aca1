package eventsync

import (
	"sync"
	"time"

	"admincal/internal/model"
)

// Snapshot is one immutable version of the event collection. Events must
// not be modified by readers.
type Snapshot struct {
	Version   uint64        `json:"version"`
	Events    []model.Event `json:"events"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Store owns the displayable event collection. Every change replaces the
// slice with a new one, so a Snapshot handed out earlier stays valid.
type Store struct {
	mu      sync.Mutex
	current Snapshot

	subMu  sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
}

func NewStore() *Store {
	return &Store{
		current: Snapshot{Events: []model.Event{}},
		subs:    make(map[int]chan Snapshot),
	}
}

// Snapshot returns the latest collection.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// apply runs fn against the current events under the store lock and, when fn
// reports a change, publishes its result as the next version. fn must return
// a new slice rather than writing into the one it was given.
func (s *Store) apply(fn func(old []model.Event) ([]model.Event, bool)) Snapshot {
	s.mu.Lock()
	next, changed := fn(s.current.Events)
	if !changed {
		snap := s.current
		s.mu.Unlock()
		return snap
	}
	s.current = Snapshot{
		Version:   s.current.Version + 1,
		Events:    next,
		UpdatedAt: time.Now().UTC(),
	}
	snap := s.current
	// Publish while still holding mu so subscribers see versions in order.
	s.publish(snap)
	s.mu.Unlock()
	return snap
}

// Subscribe returns a channel that receives the latest snapshot after each
// change. Slow readers only ever see the newest value; older pending values
// are dropped. The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publish(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		// Drop a stale pending value, then deliver the new one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
