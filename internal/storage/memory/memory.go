package memory

import (
	"context"
	"sync"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/storage"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultMaxEntries bounds the cache when NewStorage is given no size.
const DefaultMaxEntries = 10000

// Storage is a process-local tag cache. The least recently used entry is
// evicted once maxEntries is reached.
type Storage struct {
	mu      sync.Mutex
	entries *simplelru.LRU[string, storage.Entry]
	tags    map[string]map[string]struct{}
	gens    map[string]uint64
}

func NewStorage(maxEntries int) *Storage {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	s := &Storage{
		tags: make(map[string]map[string]struct{}),
		gens: make(map[string]uint64),
	}
	// only fails on a non-positive size
	s.entries, _ = simplelru.NewLRU[string, storage.Entry](maxEntries, s.unindex)
	return s
}

// unindex runs under s.mu whenever an entry leaves the LRU.
func (s *Storage) unindex(key string, e storage.Entry) {
	for _, tag := range e.Tags {
		keys := s.tags[tag]
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.tags, tag)
		}
	}
}

func (s *Storage) Get(_ context.Context, key string) (storage.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries.Get(key)
	if !ok {
		return storage.Entry{}, storage.ErrCacheMiss
	}
	e.Body = append([]byte(nil), e.Body...)
	e.Tags = append([]string(nil), e.Tags...)
	return e, nil
}

func (s *Storage) Generation(_ context.Context, tags ...string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation(tags), nil
}

func (s *Storage) generation(tags []string) uint64 {
	var gen uint64
	for _, tag := range tags {
		gen += s.gens[tag]
	}
	return gen
}

func (s *Storage) Set(_ context.Context, key string, entry storage.Entry, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation(tags) != entry.Generation {
		return storage.ErrStale
	}

	entry.Body = append([]byte(nil), entry.Body...)
	entry.Tags = append([]string(nil), tags...)
	if old, ok := s.entries.Peek(key); ok {
		s.unindex(key, old)
	}
	s.entries.Add(key, entry)
	for _, tag := range tags {
		keys, ok := s.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (s *Storage) Invalidate(_ context.Context, tags ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tag := range tags {
		s.gens[tag]++
		keys := make([]string, 0, len(s.tags[tag]))
		for key := range s.tags[tag] {
			keys = append(keys, key)
		}
		for _, key := range keys {
			s.entries.Remove(key)
		}
		delete(s.tags, tag)
	}
	return nil
}

// Len returns the number of cached entries.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}
