package session

import (
	"sync"
)

// State describes what the Store knows about the current user.
type State int

const (
	// StateUnknown is the initial state, before bootstrap resolves.
	StateUnknown State = iota
	// StatePresent means a user is signed in.
	StatePresent
	// StateAbsent means nobody is signed in.
	StateAbsent
)

func (s State) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

type subscriber struct {
	id int
	fn func(*User)
}

// Store holds the single current-user slot. It is the only source of truth for
// whether anyone is signed in and is safe for concurrent use.
//
// Subscribers are called synchronously, in subscription order, before Set
// returns. A subscriber must not call Set or ClearIfPresent on the same Store.
type Store struct {
	// notifyMu serializes a mutation together with its notification so
	// subscribers observe writes in the order they happened.
	notifyMu sync.Mutex

	mu     sync.RWMutex
	user   *User
	state  State
	closed bool
	nextID int
	subs   []subscriber
}

// NewStore creates a Store in StateUnknown.
func NewStore() *Store {
	return &Store{state: StateUnknown}
}

// Current returns the signed in user, or nil when absent or unknown.
func (s *Store) Current() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Set replaces the current user. A nil user marks the session absent.
// After Close, Set is a no-op.
func (s *Store) Set(u *User) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	subs, ok := s.swap(func(*User, State) bool { return true }, u)
	if !ok {
		return
	}
	notify(subs, u)
}

// ClearIfPresent moves the store to absent and reports whether a user was
// present. Of several concurrent callers at most one observes true.
// An unknown store is resolved to absent; an absent store is left alone.
func (s *Store) ClearIfPresent() bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	var wasPresent bool
	subs, ok := s.swap(func(_ *User, state State) bool {
		wasPresent = state == StatePresent
		return state != StateAbsent
	}, nil)
	if !ok {
		return false
	}
	notify(subs, nil)
	return wasPresent
}

// Subscribe registers fn to be called with every new value. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(*User)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Close stops the store from accepting further mutations and drops all
// subscribers. Refreshes or retries still in flight cannot change it anymore.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
}

// Active reports whether the store still accepts mutations.
func (s *Store) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

// swap applies u when cond holds and returns a snapshot of the subscribers.
func (s *Store) swap(cond func(*User, State) bool, u *User) ([]subscriber, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !cond(s.user, s.state) {
		return nil, false
	}

	s.user = u
	if u != nil {
		s.state = StatePresent
	} else {
		s.state = StateAbsent
	}

	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	return subs, true
}

func notify(subs []subscriber, u *User) {
	for _, sub := range subs {
		sub.fn(u)
	}
}
