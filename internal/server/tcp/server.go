package tcp

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/ember-web/ember/http/status"
)

type onConnection func(net.Conn)

// Server owns one listening socket and the registry of connections accepted
// off it. The registry is the only state shared between the accept path and
// the connection goroutines, so it's the only thing guarded by a lock; each
// connection's own state is owned exclusively by its goroutine.
type Server struct {
	sock     net.Listener
	onConn   onConnection
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	shutdown atomic.Bool
}

func NewServer(sock net.Listener, onConn onConnection) *Server {
	return &Server{
		sock:   sock,
		onConn: onConn,
		conns:  map[net.Conn]struct{}{},
	}
}

// Start runs the accept loop until the listener is closed. It returns only
// after every accepted connection has finished, so by the time it returns
// on shutdown, the server is fully drained. status.ErrShutdown signals an
// ordinary stop, any other error an accept failure.
func (s *Server) Start() error {
	for {
		conn, err := s.sock.Accept()
		if err != nil {
			s.wg.Wait()

			if s.shutdown.Load() {
				return status.ErrShutdown
			}

			return err
		}

		s.register(conn)
		s.wg.Add(1)
		go s.connHandler(conn)
	}
}

// Pause closes the listener, leaving the accepted connections free to end
// their lives peacefully. Used for graceful shutdown.
func (s *Server) Pause() {
	if !s.shutdown.Swap(true) {
		_ = s.sock.Close()
	}
}

// Stop shuts the listener and ALL the live connections down. Connections
// amid an exchange observe it as a transport error.
func (s *Server) Stop() {
	s.Pause()

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
}

func (s *Server) connHandler(conn net.Conn) {
	defer s.wg.Done()

	s.onConn(conn)
	_ = conn.Close()
	s.deregister(conn)
}

func (s *Server) register(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) deregister(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// PauseAll stops the listeners of all the servers, keeping the connections served.
func PauseAll(servers []*Server) {
	for _, server := range servers {
		server.Pause()
	}
}

// StopAll stops the listeners and the connections of all the servers.
func StopAll(servers []*Server) {
	for _, server := range servers {
		server.Stop()
	}
}
