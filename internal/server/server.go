// Package server owns the listener boundary: the TCP accept loop that
// hands each connection to a protocol session, and the HTTP admin
// surface.
//
// One goroutine per accepted connection; sessions share nothing but
// the injected registry, sink, and store.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/gntpd/internal/gntp"
	"github.com/danmuck/gntpd/internal/observability"
)

// Config is the listener configuration.
type Config struct {
	// Addr is the TCP listen address, e.g. ":23053".
	Addr string

	// ReadTimeout bounds how long a stalled peer may hold a handler.
	// Zero means no deadline, as the protocol itself defines none.
	ReadTimeout time.Duration
}

// Server accepts GNTP connections and runs one session per
// connection.
type Server struct {
	cfg      Config
	registry gntp.Registry
	sink     gntp.Sink
	store    gntp.ResourceStore

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed atomic.Bool
	nextID atomic.Uint64
	wg     sync.WaitGroup
}

func New(cfg Config, registry gntp.Registry, sink gntp.Sink, store gntp.ResourceStore) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		sink:     sink,
		store:    store,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Serve listens and accepts until ctx is cancelled or Close is
// called. One connection's fault never affects the accept loop.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	log.Info().Str("addr", ln.Addr().String()).Msg("listening for GNTP connections")

	stop := context.AfterFunc(ctx, func() {
		s.Close()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return err
		}
		id := s.nextID.Add(1)
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
			}()
			s.handle(id, conn)
		}()
	}
}

// Addr returns the bound listen address, nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops accepting and closes every open connection, which
// promptly unblocks in-progress reads.
func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	ln := s.ln
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

func (s *Server) handle(id uint64, conn net.Conn) {
	defer conn.Close()

	observability.RecordConnection()
	logger := log.With().Uint64("conn", id).Str("remote", conn.RemoteAddr().String()).Logger()
	logger.Info().Msg("connection accepted")

	if s.cfg.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			logger.Warn().Err(err).Msg("failed to set read deadline")
		}
	}

	sess := gntp.NewSession(id, conn, conn, s.registry, s.sink, s.store)
	res := sess.Run()

	observability.RecordRequest(string(res.MessageType), string(res.Outcome), res.Duration)
	if res.ResourceBytes > 0 {
		observability.RecordResourceBytes(res.ResourceBytes-res.CachedBytes, false)
	}
	if res.CachedBytes > 0 {
		observability.RecordResourceBytes(res.CachedBytes, true)
	}

	logger.Info().
		Str("type", string(res.MessageType)).
		Str("outcome", string(res.Outcome)).
		Dur("duration", res.Duration).
		Msg("connection closed")
}
