package http

import "io"

type OnBodyCallback func([]byte) error

// Body provides access to the message body. Pieces are delivered as they
// arrive off the wire, so the whole body never has to fit in memory unless
// Bytes or String is used.
//
// The body is bounded either by Content-Length or by the terminal zero-sized
// chunk; exceeding the configured cap results in status.ErrBodyTooLarge.
type Body interface {
	io.Reader
	// Init binds the body reader to the request whose headers were just
	// parsed. Called by the connection driver, never by handlers.
	Init(*Request)
	// Retrieve returns the next piece of the body. io.EOF signals the end;
	// the data returned along with it is still valid.
	Retrieve() ([]byte, error)
	// Bytes returns the whole body at once, buffering it if needed.
	Bytes() ([]byte, error)
	// String returns the whole body as a string.
	String() (string, error)
	// Callback invokes cb on every arriving piece of the body.
	Callback(cb OnBodyCallback) error
	// Discard reads the rest of the body out and throws it away.
	Discard() error
}
