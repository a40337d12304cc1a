package state

import "sync"

// Store holds a value and notifies subscribers whenever it changes.
// Updates are serialized; subscribers run outside the lock, in the updating
// goroutine.
type Store[S any] struct {
	mu     sync.Mutex
	value  S
	subs   map[int]func(S)
	nextID int
}

// NewStore creates a store holding initial
func NewStore[S any](initial S) *Store[S] {
	return &Store[S]{value: initial, subs: make(map[int]func(S))}
}

// Get returns the current value
func (s *Store[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Update replaces the value with fn(current) and returns the new value
func (s *Store[S]) Update(fn func(S) S) S {
	s.mu.Lock()
	s.value = fn(s.value)
	next := s.value
	subs := make([]func(S), 0, len(s.subs))
	for i := 0; i < s.nextID; i++ {
		if sub, ok := s.subs[i]; ok {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next
}

// Set replaces the value
func (s *Store[S]) Set(v S) S {
	return s.Update(func(S) S { return v })
}

// Subscribe registers fn and returns a function that removes it
func (s *Store[S]) Subscribe(fn func(S)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
