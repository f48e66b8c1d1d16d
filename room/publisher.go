package room

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// Publisher sends one datagram to a room's multicast group. Delivery is
// fire-and-forget: no acknowledgment, no retry.
type Publisher interface {
	Publish(group net.IP, payload []byte) error
}

// UDPPublisher publishes room messages over a single shared UDP socket to
// the fixed well-known chat port.
type UDPPublisher struct {
	conn *net.UDPConn
	port int
}

// NewUDPPublisher opens the datagram socket used for every room broadcast
// and applies the multicast TTL and loopback settings.
func NewUDPPublisher(port, ttl int) (*UDPPublisher, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("open chat socket: %w", err)
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.SetMulticastTTL(ttl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set multicast ttl: %w", err)
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set multicast loopback: %w", err)
	}

	return &UDPPublisher{conn: conn, port: port}, nil
}

// Publish sends payload to the group address on the chat port.
func (u *UDPPublisher) Publish(group net.IP, payload []byte) error {
	_, err := u.conn.WriteToUDP(payload, &net.UDPAddr{IP: group, Port: u.port})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", group, err)
	}
	return nil
}

// Close releases the datagram socket.
func (u *UDPPublisher) Close() error {
	return u.conn.Close()
}
