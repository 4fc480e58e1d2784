package router

import (
	"github.com/ember-web/ember/http"
)

// Router is the boundary between the connector and the application. The
// connector guarantees that OnRequest and OnError are never called
// concurrently for the same connection, and that the returned response isn't
// touched after the call returns.
type Router interface {
	// OnStart is called once, before any of the listeners starts accepting.
	OnStart() error
	// OnRequest is called for each successfully parsed request.
	OnRequest(request *http.Request) *http.Response
	// OnError is called when the request cannot be served: a malformed head,
	// an oversized body, an unsupported expectation. The response it returns
	// is the last one on the connection.
	OnError(request *http.Request, err error) *http.Response
}
