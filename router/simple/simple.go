// Package simple provides the naivest router possible: a single handler for
// everything, an optional error handler aside.
package simple

import (
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/router"
)

type (
	Handler      func(*http.Request) *http.Response
	ErrorHandler func(*http.Request, error) *http.Response
)

var _ router.Router = Router{}

type Router struct {
	handler    Handler
	errHandler ErrorHandler
}

func New(handler Handler, errHandler ...ErrorHandler) Router {
	eh := defaultErrorHandler
	if len(errHandler) > 0 {
		eh = errHandler[0]
	}

	return Router{
		handler:    handler,
		errHandler: eh,
	}
}

func (Router) OnStart() error {
	return nil
}

func (r Router) OnRequest(request *http.Request) *http.Response {
	return r.handler(request)
}

func (r Router) OnError(request *http.Request, err error) *http.Response {
	return r.errHandler(request, err)
}

func defaultErrorHandler(request *http.Request, err error) *http.Response {
	return http.Error(request, err)
}
