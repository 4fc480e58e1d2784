package dummy

import (
	"io"
	"net"

	"github.com/ember-web/ember/internal/server/tcp"
)

var _ tcp.Client = new(CircularClient)

// CircularClient replays the pieces it was initialised with, one piece per
// Read. By default it starts over after the last piece; OneTime makes it
// report io.EOF instead. Writes are recorded for assertions.
type CircularClient struct {
	data    [][]byte
	tmp     []byte
	written []byte
	pointer int
	closed  bool
	oneTime bool
}

func NewCircularClient(data ...[]byte) *CircularClient {
	return &CircularClient{
		data: data,
	}
}

func (c *CircularClient) Read() ([]byte, error) {
	if c.closed {
		return nil, io.EOF
	}

	if len(c.tmp) > 0 {
		data := c.tmp
		c.tmp = nil

		return data, nil
	}

	if c.pointer >= len(c.data) {
		if c.oneTime {
			c.closed = true
			return nil, io.EOF
		}

		c.pointer = 0
	}

	piece := c.data[c.pointer]
	c.pointer++

	return piece, nil
}

func (c *CircularClient) Unread(b []byte) {
	c.tmp = b
}

func (c *CircularClient) Write(b []byte) error {
	if c.closed {
		return io.ErrClosedPipe
	}

	c.written = append(c.written, b...)

	return nil
}

func (c *CircularClient) Remote() net.Addr {
	return nil
}

func (c *CircularClient) Close() error {
	c.closed = true
	return nil
}

// OneTime makes the client play its pieces just once.
func (c *CircularClient) OneTime() *CircularClient {
	c.oneTime = true
	return c
}

func (c *CircularClient) Written() []byte {
	return c.written
}
