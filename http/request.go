package http

import (
	"net"

	"github.com/ember-web/ember/http/method"
	"github.com/ember-web/ember/http/proto"
	"github.com/ember-web/ember/kv"
)

type (
	Headers = *kv.Storage
	Header  = kv.Pair
)

// Request represents a single HTTP request. It is built by the parser and
// must be treated as read-only by handlers; the connection driver resets it
// between exchanges on a persistent connection.
type Request struct {
	// Method is an enum representing the request method.
	Method method.Method
	// Path is the raw request path, without the query.
	Path string
	// Query holds the unparsed query string, without the leading question mark.
	Query string
	// Proto is the protocol the request arrived with.
	Proto proto.Proto
	// Headers holds non-normalized header pairs; lookup is case-insensitive.
	Headers Headers
	commonHeaders
	// Remote holds the remote address. Note that this is generally a poor way
	// to identify a user, as there might be proxies in the middle.
	Remote net.Addr
	// Body is a dedicated entity providing access to the message body.
	Body Body

	response *Response
}

func NewRequest(headers Headers, response *Response, remote net.Addr, body Body) *Request {
	return &Request{
		Method:   method.Unknown,
		Proto:    proto.HTTP11,
		Headers:  headers,
		Remote:   remote,
		Body:     body,
		response: response,
	}
}

// Respond returns the response builder bound to this request.
//
// WARNING: the builder is cleared by this call. As it is shared by reference,
// it'll be cleared EVERYWHERE along the handler
func (r *Request) Respond() *Response {
	return r.response.Clear()
}

// Clear discards the unread rest of the body and resets the request for the
// next exchange on the same connection. It can fail only on a read error.
func (r *Request) Clear() error {
	err := r.Body.Discard()

	r.Method = method.Unknown
	r.Path = ""
	r.Query = ""
	r.Headers.Clear()
	r.commonHeaders = commonHeaders{}

	return err
}

type commonHeaders struct {
	// Encoding describes the codings the body was encoded with.
	Encoding Encodings
	// ContentLength is the value of the Content-Length header, 0 if absent.
	//
	// NOTE: don't rely on it when any Transfer-Encoding is applied.
	ContentLength int
	// ContentType is the value of the Content-Type header.
	ContentType string
	// Connection holds the non-normalized Connection header value; compare it
	// case-insensitively.
	Connection string
	// Expect holds the Expect header value. Expectations (including
	// 100-continue) aren't supported: a request carrying any is answered
	// with 417 Expectation Failed and the connection is closed.
	Expect string
}

type Encodings struct {
	// Transfer contains the applied Transfer-Encoding tokens in their original
	// order, except chunked, which has its own flag.
	Transfer []string
	// Content contains the applied Content-Encoding tokens in their original order.
	Content []string
	// Accept contains the Accept-Encoding tokens the client is willing to
	// receive. Used for response compression negotiation.
	Accept []string
	// Chunked is processed separately of other transfer encodings, as it
	// defines the body framing.
	Chunked bool
	// HasTrailer is set when the request announced trailer fields after a
	// chunked body. Trailers are consumed and discarded.
	HasTrailer bool
}
