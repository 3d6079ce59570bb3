package preprocess

import (
	"sort"
	"sync"
)

// SymbolTable maps macro names to values. One table is shared by every file
// preprocessed during a build so that later files see earlier #defines.
type SymbolTable struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSymbolTable creates a table seeded with initial.
func NewSymbolTable(initial map[string]string) *SymbolTable {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &SymbolTable{values: values}
}

// Define binds name to value unless name is already defined. It reports the
// previous value and whether the new one was stored.
func (s *SymbolTable) Define(name, value string) (previous string, stored bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.values[name]; ok {
		return prev, false
	}
	s.values[name] = value
	return "", true
}

// Set binds name to value unconditionally.
func (s *SymbolTable) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// Undef removes name.
func (s *SymbolTable) Undef(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, name)
}

// Lookup returns the value bound to name.
func (s *SymbolTable) Lookup(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Names returns the defined names, sorted.
func (s *SymbolTable) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of defined names.
func (s *SymbolTable) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// snapshot returns a copy of the bindings for expression evaluation.
func (s *SymbolTable) snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
