// Package rpcserver is the small transport capability spec.md §9 asks
// for: bind an address, register a handler table, start/stop/wait.
// SPEC_FULL.md §2.5 treats the wire protocol as an external
// collaborator and backs this capability with the standard library's
// net/rpc rather than reimplementing a wire format.
package rpcserver

import (
	"net"
	"net/rpc"
	"sync"

	"github.com/CefBoud/corelog/logging"
)

// Server binds one address and serves any number of registered
// net/rpc receivers until Stop is called.
type Server struct {
	addr     string
	rpc      *rpc.Server
	listener net.Listener
	wg       sync.WaitGroup
	stopped  chan struct{}
}

// New returns a Server bound to no address yet; call Bind then Start.
func New() *Server {
	return &Server{rpc: rpc.NewServer(), stopped: make(chan struct{})}
}

// Register adds rcvr's exported methods to the handler table under
// name. Must be called before Start.
func (s *Server) Register(name string, rcvr any) error {
	return s.rpc.RegisterName(name, rcvr)
}

// Bind opens a TCP listener on addr.
func (s *Server) Bind(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.addr = addr
	s.listener = l
	return nil
}

// Addr returns the server's bound address, useful when Bind was given
// a ":0" ephemeral port (tests).
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start runs the accept loop in a background goroutine.
func (s *Server) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		logging.Info("rpcserver listening on %v", s.addr)
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.stopped:
					return
				default:
					logging.Error("rpcserver accept error: %v", err)
					return
				}
			}
			go s.rpc.ServeConn(conn)
		}
	}()
}

// Stop closes the listener, unblocking the accept loop.
func (s *Server) Stop() error {
	close(s.stopped)
	return s.listener.Close()
}

// Wait blocks until the accept loop has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}
