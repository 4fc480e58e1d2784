package dummy

import (
	"io"
	"net"

	"github.com/ember-web/ember/internal/server/tcp"
)

var _ tcp.Client = NopClient{}

// NopClient has no data to read and swallows everything written into it.
type NopClient struct{}

func NewNopClient() NopClient {
	return NopClient{}
}

func (NopClient) Read() ([]byte, error) {
	return nil, io.EOF
}

func (NopClient) Unread([]byte) {}

func (NopClient) Write([]byte) error {
	return nil
}

func (NopClient) Remote() net.Addr {
	return nil
}

func (NopClient) Close() error {
	return nil
}
