package server

import (
	"context"
	"sync"

	"github.com/creachadair/jrpc2"

	"github.com/autobright/autobright/pkg/logger"
)

const notifyQueueSize = 256

type notification struct {
	method string
	params any
}

// RPCNotifier maintains the connected jrpc2 servers and broadcasts push
// notifications to all of them.
type RPCNotifier struct {
	mu      sync.RWMutex
	servers map[*jrpc2.Server]struct{}
	log     logger.Logger
	queue   chan notification
}

// NewRPCNotifier creates a notifier. Publish queues until Run drains.
func NewRPCNotifier(l logger.Logger) *RPCNotifier {
	return &RPCNotifier{
		servers: make(map[*jrpc2.Server]struct{}),
		log:     logger.OrNop(l),
		queue:   make(chan notification, notifyQueueSize),
	}
}

func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.servers[srv] = struct{}{}
}

func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.servers, srv)
}

// Broadcast sends a notification to every registered server. Servers that
// fail are unregistered.
func (n *RPCNotifier) Broadcast(method string, params any) {
	n.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(n.servers))
	for srv := range n.servers {
		servers = append(servers, srv)
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range servers {
		if err := srv.Notify(context.Background(), method, params); err != nil {
			logger.Debug(n.log, "push %s failed: %v", method, err)
			failed = append(failed, srv)
		}
	}
	if len(failed) > 0 {
		n.mu.Lock()
		for _, srv := range failed {
			delete(n.servers, srv)
		}
		n.mu.Unlock()
	}
}

// Publish queues a broadcast without blocking. It reports false when the
// queue is full and the notification was dropped.
func (n *RPCNotifier) Publish(method string, params any) bool {
	select {
	case n.queue <- notification{method: method, params: params}:
		return true
	default:
		return false
	}
}

// Run broadcasts queued notifications until ctx is done.
func (n *RPCNotifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case nt := <-n.queue:
			n.Broadcast(nt.method, nt.params)
		}
	}
}

// Count returns the number of registered servers.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}
