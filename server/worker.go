package server

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/socialgossip/gossipd/protocol"
)

// worker pulls connection tasks off the shared queue. An admission task
// completes the port handshake and becomes a serve task; a serve task gets
// one bounded read per cycle and is re-queued until its peer disconnects.
type worker struct {
	queue   chan *task
	handler *Handler

	handshakeTimeout time.Duration
	readTimeout      time.Duration
	dialTimeout      time.Duration
}

func (w *worker) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-w.queue:
			switch t.kind {
			case taskAdmit:
				w.admit(t)
			case taskServe:
				w.serve(t)
			}
		}
	}
}

// requeue hands the task back to the pool. The queue is sized for the
// admission bound, so a full queue means the connection is beyond what the
// server was configured to carry.
func (w *worker) requeue(t *task) {
	select {
	case w.queue <- t:
	default:
		log.Error().Str("conn", t.id).Msg("task queue full, dropping connection")
		w.handler.Disconnect(t.control)
		t.control.Close()
		if t.message != nil {
			t.message.Close()
		}
	}
}

// admit performs the secondary-channel handshake: the client sends one line
// with the port its private listener is bound to, and the server dials it.
// Any failure drops the connection without enqueueing.
func (w *worker) admit(t *task) {
	t.control.SetReadDeadline(time.Now().Add(w.handshakeTimeout))
	line, err := t.reader.ReadString('\n')
	t.control.SetReadDeadline(time.Time{})
	if err != nil {
		log.Warn().Str("conn", t.id).Err(err).Msg("port handshake failed")
		t.control.Close()
		return
	}

	port, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || port <= 0 || port > 65535 {
		log.Warn().Str("conn", t.id).Str("line", strings.TrimSpace(line)).Msg("unparsable handshake port")
		t.control.Close()
		return
	}

	host, _, err := net.SplitHostPort(t.control.RemoteAddr().String())
	if err != nil {
		t.control.Close()
		return
	}
	message, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), w.dialTimeout)
	if err != nil {
		log.Warn().Str("conn", t.id).Err(err).Msg("cannot open message channel")
		t.control.Close()
		return
	}

	t.kind = taskServe
	t.message = message
	log.Info().Str("conn", t.id).Int("port", port).Msg("message channel established")
	w.requeue(t)
}

// serve attempts one bounded read of a pending request. A timeout just
// re-queues the task; end-of-stream tears the session down; anything else
// produces exactly one response on the control channel.
func (w *worker) serve(t *task) {
	t.control.SetReadDeadline(time.Now().Add(w.readTimeout))
	req, err := protocol.ReadMessage(t.reader)
	t.control.SetReadDeadline(time.Time{})

	switch {
	case err == nil:

	case isTimeout(err):
		// nothing pending on this connection this cycle
		w.requeue(t)
		return

	case errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed):
		w.teardown(t)
		return

	case errors.Is(err, protocol.ErrMalformed):
		// the protocol has no way to NACK an unparsable envelope
		log.Warn().Str("conn", t.id).Err(err).Msg("dropping malformed request")
		w.requeue(t)
		return

	default:
		// reset or otherwise broken transport, treat like a disconnect
		log.Warn().Str("conn", t.id).Err(err).Msg("read failed")
		w.teardown(t)
		return
	}

	if req.Kind != protocol.KindRequest {
		// responses and raw text belong on the message channel, not here
		log.Warn().Str("conn", t.id).Int("kind", req.Kind).Msg("non-request on control channel")
		w.requeue(t)
		return
	}

	if resp := w.handler.Dispatch(t.control, t.message, req); resp != nil {
		if err := protocol.WriteMessage(t.control, resp); err != nil {
			// not connection-fatal for this cycle, the next read decides
			log.Warn().Str("conn", t.id).Err(err).Msg("response send failed")
		}
	}
	w.requeue(t)
}

// teardown handles a clean disconnect: notify the owning session's friends,
// drop the session, close both channels. The task is not re-queued.
func (w *worker) teardown(t *task) {
	log.Info().Str("conn", t.id).Msg("client disconnected")
	w.handler.Disconnect(t.control)
	t.control.Close()
	if t.message != nil {
		t.message.Close()
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
