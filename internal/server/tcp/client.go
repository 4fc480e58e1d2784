package tcp

import (
	"net"
	"time"

	"github.com/ember-web/ember/internal/timer"
	"github.com/ember-web/ember/internal/unreader"
)

// Client is the uniform byte-stream of a single connection. Whether the bytes
// travel in plaintext or through TLS is hidden behind net.Conn; everything
// above this interface reasons about byte sequences only.
//
// Read arms the idle deadline on every call, so a peer silent for longer than
// the configured timeout gets its connection closed.
type Client interface {
	Read() ([]byte, error)
	// Unread returns bytes to the client, so the following Read returns them
	// first. Used for pipelined requests read past the current one.
	Unread([]byte)
	Write([]byte) error
	Remote() net.Addr
	Close() error
}

type client struct {
	unreader *unreader.Unreader
	conn     net.Conn
	buff     []byte
	timeout  time.Duration
}

func NewClient(conn net.Conn, timeout time.Duration, buff []byte) Client {
	return &client{
		unreader: new(unreader.Unreader),
		conn:     conn,
		buff:     buff,
		timeout:  timeout,
	}
}

func (c *client) Read() ([]byte, error) {
	return c.unreader.PendingOr(func() ([]byte, error) {
		// the cached clock is coarse, but deadlines don't need to be precise
		if err := c.conn.SetReadDeadline(timer.Now().Add(c.timeout)); err != nil {
			return nil, err
		}

		n, err := c.conn.Read(c.buff)

		return c.buff[:n], err
	})
}

func (c *client) Unread(b []byte) {
	c.unreader.Unread(b)
}

func (c *client) Write(b []byte) error {
	_, err := c.conn.Write(b)

	return err
}

func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *client) Close() error {
	return c.conn.Close()
}
