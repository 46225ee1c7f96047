// Package draftsync mirrors a locally edited resume draft to the backend.
//
// The local Store is always the source of truth. A Replicator watches it,
// debounces bursts of edits and replays the latest snapshot through the REST
// API when a session is available. Remote failures never modify local state.
package draftsync

import (
	"sort"
	"sync"
)

// Change describes one mutation of the draft. Keys is nil after Replace.
type Change struct {
	Keys     []string
	Snapshot map[string]any
}

// Store holds the single local draft.
type Store struct {
	mu      sync.RWMutex
	doc     map[string]any
	nextSub int
	subs    map[int]func(Change)
}

func NewStore(initial map[string]any) *Store {
	doc := deepCopyMap(initial)
	if doc == nil {
		doc = map[string]any{}
	}
	return &Store{doc: doc, subs: map[int]func(Change){}}
}

// Set replaces one top-level key.
func (s *Store) Set(key string, value any) {
	s.Merge(map[string]any{key: value})
}

// Merge replaces every top-level key present in patch. Nested values are not merged.
func (s *Store) Merge(patch map[string]any) {
	if len(patch) == 0 {
		return
	}
	s.mu.Lock()
	keys := make([]string, 0, len(patch))
	for k, v := range patch {
		s.doc[k] = deepCopyValue(v)
		keys = append(keys, k)
	}
	sort.Strings(keys)
	change := Change{Keys: keys, Snapshot: deepCopyMap(s.doc)}
	subs := s.subscribers()
	s.mu.Unlock()

	publish(subs, change)
}

// Replace swaps the whole draft.
func (s *Store) Replace(doc map[string]any) {
	s.mu.Lock()
	s.doc = deepCopyMap(doc)
	if s.doc == nil {
		s.doc = map[string]any{}
	}
	change := Change{Snapshot: deepCopyMap(s.doc)}
	subs := s.subscribers()
	s.mu.Unlock()

	publish(subs, change)
}

// Snapshot returns a deep copy of the current draft.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopyMap(s.doc)
}

// Subscribe registers fn for every subsequent change. fn runs on the
// mutating goroutine and must not block.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// subscribers must be called with s.mu held.
func (s *Store) subscribers() []func(Change) {
	out := make([]func(Change), 0, len(s.subs))
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

func publish(subs []func(Change), change Change) {
	for _, fn := range subs {
		fn(change)
	}
}

func deepCopyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
