package server

import (
	"bufio"
	"net"

	"github.com/google/uuid"
)

// taskKind is the lifecycle phase a connection task is in.
type taskKind int

const (
	// taskAdmit marks a freshly accepted connection: only the control
	// channel exists and the port handshake has not happened yet.
	taskAdmit taskKind = iota

	// taskServe marks an established connection with both channels open,
	// cycled repeatedly through the worker pool.
	taskServe
)

// task is the unit of work on the shared queue. Exactly one worker owns it
// at a time; ownership returns to the queue between cycles.
type task struct {
	kind    taskKind
	id      string
	control net.Conn
	message net.Conn

	// reader buffers the control channel and must survive across cycles,
	// or bytes read ahead of a frame boundary would be lost.
	reader *bufio.Reader
}

func newAdmitTask(conn net.Conn) *task {
	return &task{
		kind:    taskAdmit,
		id:      uuid.NewString(),
		control: conn,
		reader:  bufio.NewReader(conn),
	}
}
