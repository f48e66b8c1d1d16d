// Package social holds the concurrent undirected graph of registered users
// and their friendship edges.
package social

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrNameTaken reports a registration attempt with a username that
	// already exists.
	ErrNameTaken = errors.New("username already taken")

	// ErrUnknownUser reports an operation referencing an unregistered user.
	ErrUnknownUser = errors.New("unknown user")

	// ErrAlreadyFriends reports a duplicate friendship edge, including the
	// degenerate self-friendship case.
	ErrAlreadyFriends = errors.New("already friends")
)

// User is a registered account. The language is fixed at creation.
type User struct {
	Name     string
	Language string
}

// Graph is the social graph shared by all workers. A single RWMutex guards
// both maps so that adding an edge is atomic with respect to concurrent
// friend lookups.
type Graph struct {
	mu    sync.RWMutex
	users map[string]User
	edges map[string]map[string]struct{}
}

// NewGraph returns an empty social graph.
func NewGraph() *Graph {
	return &Graph{
		users: make(map[string]User),
		edges: make(map[string]map[string]struct{}),
	}
}

// AddUser registers a new user with its language code.
func (g *Graph) AddUser(name, language string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.users[name]; exists {
		return ErrNameTaken
	}
	g.users[name] = User{Name: name, Language: language}
	g.edges[name] = make(map[string]struct{})
	return nil
}

// IsUser reports whether name is registered.
func (g *Graph) IsUser(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.users[name]
	return exists
}

// User returns the registered user named name.
func (g *Graph) User(name string) (User, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	user, exists := g.users[name]
	if !exists {
		return User{}, ErrUnknownUser
	}
	return user, nil
}

// AreFriends reports whether a friendship edge exists between a and b.
func (g *Graph) AreFriends(a, b string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.areFriendsLocked(a, b)
}

func (g *Graph) areFriendsLocked(a, b string) (bool, error) {
	if _, exists := g.users[a]; !exists {
		return false, ErrUnknownUser
	}
	if _, exists := g.users[b]; !exists {
		return false, ErrUnknownUser
	}
	if _, ok := g.edges[a][b]; ok {
		return true, nil
	}
	_, ok := g.edges[b][a]
	return ok, nil
}

// AddFriendship creates the symmetric friendship edge between a and b.
func (g *Graph) AddFriendship(a, b string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if a == b {
		return ErrAlreadyFriends
	}
	friends, err := g.areFriendsLocked(a, b)
	if err != nil {
		return err
	}
	if friends {
		return ErrAlreadyFriends
	}
	g.edges[a][b] = struct{}{}
	g.edges[b][a] = struct{}{}
	return nil
}

// Friends returns the friend names of name, sorted for stable listings.
func (g *Graph) Friends(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, exists := g.users[name]; !exists {
		return nil, ErrUnknownUser
	}
	friends := make([]string, 0, len(g.edges[name]))
	for friend := range g.edges[name] {
		friends = append(friends, friend)
	}
	sort.Strings(friends)
	return friends, nil
}
