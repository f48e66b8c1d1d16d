package session

import (
	"net"
	"sync"
)

// Table maps logged-in usernames to their sessions. Shared by all workers.
type Table struct {
	mu     sync.RWMutex
	byName map[string]*Session
}

// NewTable returns an empty session table.
func NewTable() *Table {
	return &Table{byName: make(map[string]*Session)}
}

// Put installs s, returning the session it replaced for the same username,
// if any. Re-login evicts the stale session this way.
func (t *Table) Put(s *Session) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.byName[s.Username]
	t.byName[s.Username] = s
	return prev
}

// Get returns the live session for username.
func (t *Table) Get(username string) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.byName[username]
	return s, ok
}

// Online reports whether username currently holds a session.
func (t *Table) Online(username string) bool {
	_, ok := t.Get(username)
	return ok
}

// FindByControl locates the session owning the given control channel.
func (t *Table) FindByControl(conn net.Conn) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.byName {
		if s.control == conn {
			return s, true
		}
	}
	return nil, false
}

// Remove drops the session for username if id still matches, so a teardown
// racing a re-login never evicts the fresh session.
func (t *Table) Remove(username, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.byName[username]; ok && s.ID == id {
		delete(t.byName, username)
	}
}
