// ABOUTME: Deposit-scoped attribute store with flexible matching
// ABOUTME: Maps opaque keys to attribute sets and supports wildcard queries

package attribute

import (
	"errors"
	"sync"
)

var (
	// ErrKeyExists indicates an Add under an already-present key
	ErrKeyExists = errors.New("attribute: key already exists")
)

// SetKey builds the store key for a resource-map record. Raw per-file
// records use the absolute extracted path instead, and the BagIt and
// BagIt-Profile singletons use their set name as the key.
func SetKey(setName, resourceID string) string {
	return setName + "_" + resourceID
}

// Store maps deposit-scoped keys to exactly one attribute set each.
// A store belongs to a single deposit and is never shared across deposits.
type Store struct {
	mu   sync.RWMutex
	sets map[string]*Set
}

// NewStore creates an empty attribute store
func NewStore() *Store {
	return &Store{sets: make(map[string]*Set)}
}

// Add inserts a set under key. Fails with ErrKeyExists if the key is
// already present; re-adding is an update, not an append.
func (s *Store) Add(key string, set *Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sets[key]; ok {
		return ErrKeyExists
	}
	s.sets[key] = set
	return nil
}

// Update inserts or replaces the set under key
func (s *Store) Update(key string, set *Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[key] = set
}

// Get returns the set stored under key
func (s *Store) Get(key string) (*Set, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[key]
	return set, ok
}

// Contains reports whether key is present
func (s *Store) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[key]
	return ok
}

// Keys returns all keys in the store. No ordering is guaranteed.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.sets))
	for k := range s.sets {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of sets in the store
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets)
}

// MatchSets returns every set named setName containing at least one
// attribute satisfying the probe. Empty probe fields act as wildcards.
// Results carry no ordering guarantee beyond "all matches, no duplicates".
func (s *Store) MatchSets(setName string, probe Attribute) []*Set {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*Set
	for _, set := range s.sets {
		if set.Name != setName {
			continue
		}
		if set.Has(probe) {
			matches = append(matches, set)
		}
	}
	return matches
}

// Match returns every set containing at least one attribute satisfying pred
func (s *Store) Match(pred func(Attribute) bool) []*Set {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*Set
	for _, set := range s.sets {
		for _, a := range set.Attributes {
			if pred(a) {
				matches = append(matches, set)
				break
			}
		}
	}
	return matches
}
