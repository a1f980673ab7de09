// Package server holds the session registry, the per-connection protocol
// state machine and the TCP accept loop.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"chatline/contract"
	"chatline/moderation"
	"chatline/observability"
)

// Server accepts TCP connections and spawns one Session goroutine per
// connection. It implements contract.Worker so it runs under the
// supervisor next to the ban sweeper and the heartbeat.
type Server struct {
	log       *slog.Logger
	addr      string
	registry  *Registry
	store     contract.UserStore
	censor    moderation.Moderator
	stats     *observability.ChatStats
	idleLimit time.Duration

	boundAddr atomic.Value // string, set once listening
}

func NewServer(
	log *slog.Logger,
	addr string,
	registry *Registry,
	store contract.UserStore,
	censor moderation.Moderator,
	stats *observability.ChatStats,
	idleLimit time.Duration,
) *Server {
	return &Server{
		log:       log,
		addr:      addr,
		registry:  registry,
		store:     store,
		censor:    censor,
		stats:     stats,
		idleLimit: idleLimit,
	}
}

var _ contract.Worker = (*Server)(nil)

// Run listens and accepts until the context is canceled or an admin
// /shutdown closes the registry. Each accepted connection gets its own
// session goroutine; a failure there never reaches the accept loop.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.boundAddr.Store(listener.Addr().String())
	s.log.Info("Chat server listening", "addr", listener.Addr().String())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.registry.ShutdownRequested():
		case <-done:
		}
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.registry.ShutdownRequested():
				s.log.Info("Accept loop stopped by admin shutdown")
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		session := NewSession(s.log, conn, s.registry, s.store, s.censor, s.stats, s.idleLimit)
		go session.Run()
	}
}

// BoundAddr returns the address the listener actually bound, usable once
// Run has started listening. Handy when the configured port is 0.
func (s *Server) BoundAddr() string {
	if v := s.boundAddr.Load(); v != nil {
		return v.(string)
	}
	return ""
}
