package ember

import (
	"crypto/tls"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/http/codec"
	"github.com/ember-web/ember/http/status"
	"github.com/ember-web/ember/internal/address"
	"github.com/ember-web/ember/internal/initialize"
	httpserver "github.com/ember-web/ember/internal/server/http"
	"github.com/ember-web/ember/internal/server/tcp"
	"github.com/ember-web/ember/router"
)

type listenerFactory func(network, addr string) (net.Listener, error)

type listener struct {
	addr    string
	factory listenerFactory
}

// App glues listeners, per-connection plumbing and a router together. The
// zero value isn't usable; construct it with New.
type App struct {
	addr      string
	cfg       config.Config
	codecs    *codec.Registry
	hooks     hooks
	listeners []listener
	errCh     chan error
}

// New prepares an application serving plaintext HTTP on addr. Port-only
// addresses like ":8080" bind all the interfaces.
func New(addr string) *App {
	return &App{
		addr:   address.Normalize(addr),
		cfg:    config.Default(),
		codecs: initialize.NewCodecs(),
		errCh:  make(chan error),
	}
}

// Tune replaces the default configuration.
func (a *App) Tune(cfg config.Config) *App {
	a.cfg = cfg
	return a
}

// Codecs replaces the default response codings registry. Passing no codecs
// effectively disables response compression.
func (a *App) Codecs(codecs ...codec.Codec) *App {
	a.codecs = codec.NewRegistry(codecs...)
	return a
}

// NotifyOnStart calls the callback once all the listeners are spawned. It is
// not strongly guaranteed they accept connections at that exact moment yet.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback when the application is fully down: no
// listener accepts anymore and every client is disconnected.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Listen adds one more plaintext listener.
func (a *App) Listen(addr string, factory ...listenerFactory) *App {
	f := listenerFactory(net.Listen)
	if len(factory) > 0 {
		f = factory[0]
	}

	a.listeners = append(a.listeners, listener{
		addr:    address.Normalize(addr),
		factory: f,
	})

	return a
}

// TLS adds a listener producing TLS connections.
func (a *App) TLS(addr string, factory listenerFactory) *App {
	return a.Listen(addr, factory)
}

// HTTPS adds a TLS listener using the certificate and key at the given paths.
func (a *App) HTTPS(addr, cert, key string) *App {
	return a.TLS(addr, tlsListener(cert, key))
}

// AutoHTTPS adds a TLS listener with certificates obtained via ACME, or a
// self-signed one when the host is local.
func (a *App) AutoHTTPS(addr string, domains ...string) *App {
	if address.IsLocalhost(address.Normalize(addr)) {
		cert, key, err := selfSignedCert()
		if err != nil {
			log.Printf("WARNING: AutoHTTPS(%s): can't issue a self-signed certificate: %s. Disabling TLS", addr, err)
			return a
		}

		return a.HTTPS(addr, cert, key)
	}

	return a.TLS(addr, autoTLSListener(domains...))
}

// Serve starts the application and blocks until it stops. The returned error
// is status.ErrShutdown or status.ErrGracefulShutdown after an ordinary Stop
// or GracefulStop respectively, and the underlying failure otherwise.
func (a *App) Serve(r router.Router) error {
	if err := r.OnStart(); err != nil {
		return err
	}

	a.Listen(a.addr)
	servers, err := a.bind(r)
	if err != nil {
		return err
	}

	return a.run(servers)
}

func (a *App) bind(r router.Router) ([]*tcp.Server, error) {
	servers := make([]*tcp.Server, len(a.listeners))

	for i, l := range a.listeners {
		sock, err := l.factory("tcp", l.addr)
		if err != nil {
			return nil, err
		}

		servers[i] = tcp.NewServer(sock, a.newConnCallback(r))
	}

	return servers, nil
}

func (a *App) run(servers []*tcp.Server) error {
	var (
		failSilently atomic.Bool
		drained      sync.WaitGroup
	)

	for _, server := range servers {
		drained.Add(1)

		go func(server *tcp.Server) {
			defer drained.Done()

			err := server.Start()

			// only the first failure is reported, the rest are induced by
			// the shutdown of the other servers
			if failSilently.Swap(true) {
				return
			}

			select {
			case a.errCh <- err:
			default:
				// nobody listens anymore, the app is already shutting down
			}
		}(server)
	}

	callIfNotNil(a.hooks.OnStart)
	err := <-a.errCh
	if err == status.ErrGracefulShutdown {
		// stop accepting and serve the already established connections
		// till the end
		tcp.PauseAll(servers)
		drained.Wait()
	}

	tcp.StopAll(servers)
	drained.Wait()
	callIfNotNil(a.hooks.OnStop)

	return err
}

// GracefulStop quits accepting new connections and lets the served ones die
// out on their own. The call returns before the shutdown completes.
func (a *App) GracefulStop() {
	a.errCh <- status.ErrGracefulShutdown
}

// Stop brings the whole application down, live connections included. The
// call returns before the shutdown completes.
func (a *App) Stop() {
	a.errCh <- status.ErrShutdown
}

func (a *App) newConnCallback(r router.Router) func(net.Conn) {
	return func(conn net.Conn) {
		if tlsConn, ok := conn.(*tls.Conn); ok {
			// force the handshake before any request is awaited. A handshake
			// failure must never be answered with an HTTP response
			_ = tlsConn.SetDeadline(time.Now().Add(a.cfg.NET.ReadTimeout))
			if tlsConn.Handshake() != nil {
				return
			}
			_ = tlsConn.SetDeadline(time.Time{})
		}

		client := initialize.NewClient(a.cfg.NET, conn)
		body := initialize.NewBody(client, a.cfg.Body)
		request := initialize.NewRequest(a.cfg, conn, body)
		trans := initialize.NewTransport(a.cfg, request, a.codecs)
		httpserver.NewServer(r, a.cfg.Body).Run(client, request, trans)
	}
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
