package server

import (
	"context"
	"errors"
	"net"

	"github.com/rs/zerolog/log"
)

// acceptor admits inbound control connections and produces admission tasks
// for the worker pool.
type acceptor struct {
	listener net.Listener
	queue    chan<- *task
}

// run accepts until ctx is canceled. The listener is closed from a side
// goroutine to unblock Accept.
func (a *acceptor) run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.listener.Close()
	}()

	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Error().Err(err).Msg("accept failed")
			continue
		}

		t := newAdmitTask(conn)
		log.Info().Str("conn", t.id).Stringer("remote", conn.RemoteAddr()).Msg("connection admitted")

		select {
		case a.queue <- t:
		case <-ctx.Done():
			conn.Close()
			return nil
		}
	}
}
