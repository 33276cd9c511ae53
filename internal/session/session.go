// Package session provides the process-wide keyed store for per-chat
// interaction state (search results, menu position).
//
// Entries are created on first access and replaced wholesale on update;
// callers never mutate a stored value in place. The store is injected into
// whatever needs it instead of living in package-level variables.
package session

import "sync"

// Store maps a chat ID to one immutable state record.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewStore creates an empty session store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{entries: make(map[string]T)}
}

// Get returns the state for chatID.
func (s *Store[T]) Get(chatID string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[chatID]
	return v, ok
}

// Put replaces the state for chatID wholesale.
func (s *Store[T]) Put(chatID string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[chatID] = v
}

// Delete removes the state for chatID.
func (s *Store[T]) Delete(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, chatID)
}

// Len returns the number of chats with stored state.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SearchState is one chat's paged search result set.
type SearchState struct {
	Type    string
	Query   string
	Results []string
	Page    int
}

// PageSize is the number of search results shown per page.
const PageSize = 5

// TotalPages returns how many pages the result set spans, at least one.
func (st SearchState) TotalPages() int {
	pages := (len(st.Results) + PageSize - 1) / PageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// PageSlice returns the results for the state's current page, clamping the
// page number into range.
func (st SearchState) PageSlice() []string {
	page := st.Page
	if page < 1 {
		page = 1
	}
	if max := st.TotalPages(); page > max {
		page = max
	}
	start := (page - 1) * PageSize
	end := start + PageSize
	if end > len(st.Results) {
		end = len(st.Results)
	}
	return st.Results[start:end]
}
