package room

import (
	"fmt"
	"net"
	"sync"
)

// addressAllocator hands out multicast group addresses for new rooms,
// starting at a base address and incrementing octet by octet. Addresses of
// closed rooms are not recycled: a stale member of a dead room must never
// receive traffic for an unrelated new one.
type addressAllocator struct {
	mu   sync.Mutex
	next [4]byte
}

func newAddressAllocator(base string) (*addressAllocator, error) {
	ip := net.ParseIP(base)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("invalid multicast base address %q", base)
	}
	a := &addressAllocator{}
	copy(a.next[:], ip.To4())
	return a, nil
}

// Next returns the next free group address.
func (a *addressAllocator) Next() net.IP {
	a.mu.Lock()
	defer a.mu.Unlock()

	ip := net.IPv4(a.next[0], a.next[1], a.next[2], a.next[3]).To4()

	// carry from the last octet upward, first octet untouched
	for i := 3; i > 0; i-- {
		if a.next[i] != 255 {
			a.next[i]++
			break
		}
		a.next[i] = 0
	}
	return ip
}
