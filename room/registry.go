// Package room manages named chat rooms, each bound to its own multicast
// group address, and publishes room messages as datagrams.
package room

import (
	"errors"
	"net"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNameTaken reports a room creation with a name already in use.
	ErrNameTaken = errors.New("room name already taken")

	// ErrUnknownRoom reports an operation on a room that does not exist.
	ErrUnknownRoom = errors.New("unknown room")

	// ErrAlreadyMember reports a join by a user already in the room.
	ErrAlreadyMember = errors.New("already in room")

	// ErrNotMember reports an operation requiring membership by a
	// non-member.
	ErrNotMember = errors.New("not a room member")

	// ErrNoOneOnline reports a broadcast where no member besides the
	// sender currently holds a session.
	ErrNoOneOnline = errors.New("no other member online")
)

// Presence answers whether a user currently holds a live session. The
// session table satisfies it.
type Presence interface {
	Online(username string) bool
}

// Listing is one entry of a room listing relative to a requesting user.
type Listing struct {
	Name   string
	Member bool
}

type chatRoom struct {
	name    string
	group   net.IP
	members map[string]struct{}
}

// Registry is the process-wide set of active rooms, shared by all workers.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*chatRoom
	alloc    *addressAllocator
	presence Presence
	pub      Publisher
}

// NewRegistry builds a registry allocating group addresses from base.
func NewRegistry(base string, presence Presence, pub Publisher) (*Registry, error) {
	alloc, err := newAddressAllocator(base)
	if err != nil {
		return nil, err
	}
	return &Registry{
		rooms:    make(map[string]*chatRoom),
		alloc:    alloc,
		presence: presence,
		pub:      pub,
	}, nil
}

// Create registers a new room with founder as its first member and returns
// the multicast group address assigned to it.
func (r *Registry) Create(name, founder string) (net.IP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[name]; exists {
		return nil, ErrNameTaken
	}
	room := &chatRoom{
		name:    name,
		group:   r.alloc.Next(),
		members: map[string]struct{}{founder: {}},
	}
	r.rooms[name] = room
	log.Info().Str("room", name).Str("group", room.group.String()).Str("founder", founder).
		Msg("room created")
	return room.group, nil
}

// Join adds user to the room and returns its group address.
func (r *Registry) Join(name, user string) (net.IP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[name]
	if !exists {
		return nil, ErrUnknownRoom
	}
	if _, member := room.members[user]; member {
		return nil, ErrAlreadyMember
	}
	room.members[user] = struct{}{}
	return room.group, nil
}

// List returns every active room with a membership flag for user, sorted
// by name.
func (r *Registry) List(user string) []Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listings := make([]Listing, 0, len(r.rooms))
	for name, room := range r.rooms {
		_, member := room.members[user]
		listings = append(listings, Listing{Name: name, Member: member})
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].Name < listings[j].Name })
	return listings
}

// Close destroys the room. Any current member may close it, not only the
// founder.
func (r *Registry) Close(name, requester string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[name]
	if !exists {
		return ErrUnknownRoom
	}
	if _, member := room.members[requester]; !member {
		return ErrNotMember
	}
	delete(r.rooms, name)
	log.Info().Str("room", name).Str("by", requester).Msg("room closed")
	return nil
}

// Broadcast publishes payload to the room's multicast group. It refuses to
// send when the sender is not a member or when no other member currently
// holds a session: an empty-room multicast is a rejection, not a no-op.
func (r *Registry) Broadcast(name, sender string, payload []byte) error {
	r.mu.RLock()
	room, exists := r.rooms[name]
	if !exists {
		r.mu.RUnlock()
		return ErrUnknownRoom
	}
	if _, member := room.members[sender]; !member {
		r.mu.RUnlock()
		return ErrNotMember
	}

	someoneListening := false
	for member := range room.members {
		if member != sender && r.presence.Online(member) {
			someoneListening = true
			break
		}
	}
	group := room.group
	r.mu.RUnlock()

	if !someoneListening {
		return ErrNoOneOnline
	}
	return r.pub.Publish(group, payload)
}
