package transport

import (
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/proto"
)

// RequestState represents the progress of request parsing.
type RequestState uint8

const (
	// Pending means the parser needs more bytes.
	Pending RequestState = iota + 1
	// HeadersCompleted means the request line and all the headers arrived;
	// the unconsumed remainder is returned as extra and belongs to the body
	// or to the next pipelined request.
	HeadersCompleted
	// Error means the input violated the grammar and the connection cannot
	// be trusted anymore.
	Error
)

type Parser interface {
	Parse(b []byte) (state RequestState, extra []byte, err error)
}

type Writer interface {
	Write([]byte) error
}

// Serializer renders a response builder into bytes and pushes them into the writer.
type Serializer interface {
	Write(target proto.Proto, request *http.Request, response *http.Response, writer Writer) error
}

// Transport is a parser and a serializer of the same protocol version, bound
// to a single connection.
type Transport interface {
	Parser
	Serializer
}
