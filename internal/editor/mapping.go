package editor

import "sync"

// MappingStore associates variable ids with source-column names. It is
// session-only state: never persisted, only used to parameterize
// preview and batch requests.
type MappingStore struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMappingStore() *MappingStore {
	return &MappingStore{m: make(map[string]string)}
}

// Set maps a variable to a column. An empty column removes the entry.
func (s *MappingStore) Set(variableID, column string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if column == "" {
		delete(s.m, variableID)
		return
	}
	s.m[variableID] = column
}

// Get returns the column mapped to the variable, if any.
func (s *MappingStore) Get(variableID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.m[variableID]
	return col, ok
}

// Delete removes one entry. Called when a variable is removed so no
// mapping is left dangling.
func (s *MappingStore) Delete(variableID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, variableID)
}

// Prune drops entries whose variable id is not in keep. Invoked after
// every successful template save with the ids the server retained,
// which covers a save racing a delete.
func (s *MappingStore) Prune(keep map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.m {
		if _, ok := keep[id]; !ok {
			delete(s.m, id)
		}
	}
}

// Snapshot copies the mapping for a preview or batch request.
func (s *MappingStore) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}

// Len reports how many variables are mapped.
func (s *MappingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
