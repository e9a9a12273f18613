// Package server exposes the brightness service over JSON-RPC 2.0 on a
// Unix socket or, on Windows, a named pipe. Messages are newline framed;
// every connection gets its own jrpc2 server with push enabled so step
// notifications reach every client.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"

	"github.com/autobright/autobright/common"
	"github.com/autobright/autobright/internal/app"
	"github.com/autobright/autobright/internal/transition"
	"github.com/autobright/autobright/pkg/logger"
)

// stopGrace lets the app.stop response reach the client before shutdown.
const stopGrace = 50 * time.Millisecond

type Options struct {
	Version   string
	Commit    string
	BuildType string
	Logger    logger.Logger
	// OnStop runs when a client calls app.stop.
	OnStop func()
}

// Server serves one app.Service to any number of connections.
type Server struct {
	svc      *app.Service
	methods  handler.Map
	notifier *RPCNotifier
	log      logger.Logger
	version  common.VersionResult
	onStop   func()

	mu       sync.Mutex
	listener net.Listener
	conns    map[*jrpc2.Server]struct{}
	wg       sync.WaitGroup
}

// New creates a Server and subscribes it to svc's transition steps.
func New(svc *app.Service, opts Options) *Server {
	log := logger.OrNop(opts.Logger)
	s := &Server{
		svc:      svc,
		notifier: NewRPCNotifier(log),
		log:      log,
		version: common.VersionResult{
			Version:   opts.Version,
			Commit:    opts.Commit,
			BuildType: opts.BuildType,
		},
		onStop: opts.OnStop,
		conns:  make(map[*jrpc2.Server]struct{}),
	}
	s.methods = s.methodMap()
	svc.SetStepObserver(func(ev transition.StepEvent) {
		s.notifier.Publish(common.NotifyTransitionStep, &common.StepNotification{
			Channel: string(ev.Channel),
			Value:   ev.Value,
			Step:    ev.Step,
			Steps:   ev.Steps,
		})
	})
	return s
}

// Notifier is the push broadcaster.
func (s *Server) Notifier() *RPCNotifier { return s.notifier }

// Serve accepts connections on l until ctx is cancelled or Close is called.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.notifier.Run(ctx)
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	s.log.Info("listening on %s", l.Addr())
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.Close()
				return nil
			}
			s.log.Warning("accept: %v", err)
			continue
		}
		s.ServeChannel(channel.Line(conn, conn))
	}
}

// ServeChannel runs a jrpc2 server on ch until the peer disconnects.
func (s *Server) ServeChannel(ch channel.Channel) *jrpc2.Server {
	srv := jrpc2.NewServer(s.methods, &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(ch)
	s.notifier.Register(srv)

	s.mu.Lock()
	s.conns[srv] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Wait(); err != nil {
			logger.Debug(s.log, "connection closed: %v", err)
		}
		s.notifier.Unregister(srv)
		s.mu.Lock()
		delete(s.conns, srv)
		s.mu.Unlock()
	}()
	return srv
}

// Close stops accepting, drops every connection and removes the socket
// file. It is safe to call more than once.
func (s *Server) Close() {
	s.mu.Lock()
	l := s.listener
	s.listener = nil
	conns := make([]*jrpc2.Server, 0, len(s.conns))
	for srv := range s.conns {
		conns = append(conns, srv)
	}
	s.mu.Unlock()

	if l != nil {
		if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Warning("close listener: %v", err)
		}
		cleanupListener()
	}
	for _, srv := range conns {
		srv.Stop()
	}
	s.wg.Wait()
}
