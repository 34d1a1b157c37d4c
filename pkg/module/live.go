package module

import "sync"

// Live maps small integer ids to module instances that are currently
// parsing, so nested modules can reach the same enclosing instance. Only
// registration and removal are synchronized; the modules themselves are not.
type Live struct {
	mu      sync.RWMutex
	next    int
	modules map[int]Module
}

// NewLive returns an empty table.
func NewLive() *Live {
	return &Live{modules: make(map[int]Module)}
}

// Register adds m and returns its id.
func (l *Live) Register(m Module) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.modules[l.next] = m
	return l.next
}

// Remove drops the module with the given id.
func (l *Live) Remove(id int) {
	l.mu.Lock()
	delete(l.modules, id)
	l.mu.Unlock()
}

// Lookup returns the module registered under id.
func (l *Live) Lookup(id int) (Module, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.modules[id]
	return m, ok
}

// Len returns the number of live modules.
func (l *Live) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.modules)
}
