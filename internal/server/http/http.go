package http

import (
	"fmt"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/status"
	"github.com/ember-web/ember/internal/server/tcp"
	"github.com/ember-web/ember/internal/transport"
	"github.com/ember-web/ember/router"
)

// Server drives a single connection through its exchanges: read, parse,
// dispatch, reply, repeat until the connection dies or stops being re-usable.
// One instance is created per connection and is owned by its goroutine
// exclusively.
type Server struct {
	router router.Router
	cfg    config.Body
}

func NewServer(router router.Router, cfg config.Body) *Server {
	return &Server{
		router: router,
		cfg:    cfg,
	}
}

func (s *Server) Run(client tcp.Client, req *http.Request, trans transport.Transport) {
	for s.HandleRequest(client, req, trans) {
	}

	_ = client.Close()
}

func (s *Server) HandleRequest(client tcp.Client, req *http.Request, trans transport.Transport) (ok bool) {
	data, err := client.Read()
	if err != nil {
		// idle timeout or the peer just left. Either way there's nobody to reply to
		return false
	}

	state, extra, err := trans.Parse(data)
	switch state {
	case transport.Pending:
	case transport.HeadersCompleted:
		client.Unread(extra)

		if len(req.Expect) > 0 {
			// expectations aren't supported, 100-continue included
			_ = trans.Write(req.Proto, req, s.onError(req, status.ErrExpectationFailed), client)
			return false
		}

		if uint(req.ContentLength) > s.cfg.MaxSize {
			// reject by the declared length upfront, without reading the body in
			_ = trans.Write(req.Proto, req, s.onError(req, status.ErrBodyTooLarge), client)
			return false
		}

		req.Body.Init(req)

		if err = trans.Write(req.Proto, req, s.onRequest(req), client); err != nil {
			// when writing the response failed, there is no point in trying
			// to write anything again
			s.onError(req, status.ErrCloseConnection)
			return false
		}

		if err = req.Clear(); err != nil {
			// req.Clear() can fail only on a read error while discarding the
			// rest of the body
			s.onError(req, status.ErrCloseConnection)
			return false
		}
	case transport.Error:
		// the connection is closed anyway, so the socket error (if any) of the
		// farewell write doesn't matter
		_ = trans.Write(req.Proto, req, s.onError(req, err), client)
		return false
	default:
		panic(fmt.Sprintf("BUG: connection driver: unexpected parser state: %v", state))
	}

	return true
}

func (s *Server) onError(req *http.Request, err error) *http.Response {
	return notNil(req, s.router.OnError(req, err))
}

func (s *Server) onRequest(req *http.Request) *http.Response {
	return notNil(req, s.router.OnRequest(req))
}

func notNil(req *http.Request, resp *http.Response) *http.Response {
	if resp != nil {
		return resp
	}

	return http.Respond(req)
}
