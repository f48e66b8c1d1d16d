package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Options tunes the listener and the worker pool.
type Options struct {
	ListenAddr       string
	Workers          int
	QueueSize        int
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
}

// Server accepts client connections and services them with a fixed pool of
// workers sharing one task queue. A connection is never owned by a worker:
// between read cycles its task sits back on the queue, so a handful of
// workers can serve many mostly-idle clients.
type Server struct {
	opts    Options
	handler *Handler
	queue   chan *task
}

// New builds a server around the given request handler.
func New(opts Options, handler *Handler) *Server {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	return &Server{
		opts:    opts,
		handler: handler,
		queue:   make(chan *task, opts.QueueSize),
	}
}

// Run listens and serves until ctx is cancelled, then drains the pool.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.ListenAddr, err)
	}
	log.Info().Str("addr", listener.Addr().String()).Int("workers", s.opts.Workers).Msg("server listening")

	group, gctx := errgroup.WithContext(ctx)

	acc := &acceptor{listener: listener, queue: s.queue}
	group.Go(func() error {
		return acc.run(gctx)
	})

	for i := 0; i < s.opts.Workers; i++ {
		w := &worker{
			queue:            s.queue,
			handler:          s.handler,
			handshakeTimeout: s.opts.HandshakeTimeout,
			readTimeout:      s.opts.ReadTimeout,
			dialTimeout:      s.opts.HandshakeTimeout,
		}
		group.Go(func() error {
			return w.run(gctx)
		})
	}

	err = group.Wait()
	s.drain()
	log.Info().Msg("server stopped")
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// drain closes every connection still queued after shutdown.
func (s *Server) drain() {
	for {
		select {
		case t := <-s.queue:
			s.handler.Disconnect(t.control)
			t.control.Close()
			if t.message != nil {
				t.message.Close()
			}
		default:
			return
		}
	}
}
