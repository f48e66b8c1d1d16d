// Package session tracks the live association between a logged-in username
// and its two network channels: the control channel serviced by the worker
// pool and the message channel used for asynchronous pushes.
package session

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/socialgossip/gossipd/protocol"
)

// Session is one logged-in connection pair. All writes to the message
// channel are serialized through the session mutex, so pushes from
// different workers never interleave.
type Session struct {
	ID       string
	Username string

	control net.Conn

	mu      sync.Mutex
	message net.Conn
	reader  *bufio.Reader
}

// New builds a session over an established control/message channel pair.
func New(username string, control, message net.Conn) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Username: username,
		control:  control,
		message:  message,
		reader:   bufio.NewReader(message),
	}
}

// ControlConn exposes the control channel for identity matching at
// disconnect time.
func (s *Session) ControlConn() net.Conn { return s.control }

// Push delivers m on the message channel.
func (s *Session) Push(m *protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := protocol.WriteMessage(s.message, m); err != nil {
		return fmt.Errorf("push to %s: %w", s.Username, err)
	}
	return nil
}

// Exchange sends m on the message channel and waits up to timeout for the
// client's reply. The session stays locked for the whole round trip, so a
// concurrent Push cannot slip between request and reply.
func (s *Session) Exchange(m *protocol.Message, timeout time.Duration) (*protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.message.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	defer s.message.SetDeadline(time.Time{})

	if err := protocol.WriteMessage(s.message, m); err != nil {
		return nil, fmt.Errorf("exchange with %s: %w", s.Username, err)
	}
	reply, err := protocol.ReadMessage(s.reader)
	if err != nil {
		return nil, fmt.Errorf("exchange with %s: %w", s.Username, err)
	}
	return reply, nil
}

// Close tears down both channels.
func (s *Session) Close() {
	s.control.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message.Close()
}
