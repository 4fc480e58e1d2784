package http1

import (
	"io"
	"math"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/status"
	"github.com/ember-web/ember/internal/server/tcp"
	"github.com/ember-web/ember/internal/stash"
	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/utils/uf"
)

var _ http.Body = new(Body)

// Body delivers the message body piece by piece, bounded either by the
// declared Content-Length or by the terminal zero-sized chunk. Bytes read
// past the boundary are unread back into the client, as they belong to the
// next pipelined request.
type Body struct {
	*stash.Reader
	plain        plainBodyReader
	chunked      chunkedBodyReader
	isChunked    bool
	eof          bool
	fullBodyBuff []byte
}

func NewBody(client tcp.Client, chunkedParser *chunkedbody.Parser, cfg config.Body) *Body {
	body := &Body{
		plain:   newPlainBodyReader(client, cfg.MaxSize),
		chunked: newChunkedBodyReader(client, cfg.MaxSize, chunkedParser),
	}
	body.Reader = stash.New(body.Retrieve)

	return body
}

// Init binds the body to the request whose head was just parsed. Must be
// called before the first Retrieve of every exchange.
func (b *Body) Init(request *http.Request) {
	b.isChunked = request.Encoding.Chunked
	if b.isChunked {
		b.chunked.init(request)
	} else {
		b.plain.init(request)
	}

	b.eof = false
	b.Reader.Reset()
}

func (b *Body) String() (string, error) {
	bytes, err := b.Bytes()

	return uf.B2S(bytes), err
}

func (b *Body) Bytes() ([]byte, error) {
	if b.eof {
		return b.fullBodyBuff, nil
	}

	if !b.isChunked && cap(b.fullBodyBuff) < int(b.plain.bytesLeft) {
		b.fullBodyBuff = make([]byte, 0, b.plain.bytesLeft)
	}

	b.fullBodyBuff = b.fullBodyBuff[:0]

	for {
		data, err := b.Retrieve()
		b.fullBodyBuff = append(b.fullBodyBuff, data...)
		switch err {
		case nil:
		case io.EOF:
			return b.fullBodyBuff, nil
		default:
			return nil, err
		}
	}
}

func (b *Body) Callback(cb http.OnBodyCallback) error {
	for {
		data, err := b.Retrieve()
		switch err {
		case nil:
		case io.EOF:
			return cb(data)
		default:
			return err
		}

		if err = cb(data); err != nil {
			return err
		}
	}
}

func (b *Body) Retrieve() ([]byte, error) {
	if b.eof {
		return nil, io.EOF
	}

	var (
		piece []byte
		err   error
	)

	if b.isChunked {
		piece, err = b.chunked.read()
	} else {
		piece, err = b.plain.read()
	}

	if err == io.EOF {
		b.eof = true
	}

	return piece, err
}

func (b *Body) Discard() (err error) {
	for !b.eof {
		_, err = b.Retrieve()
		if err != nil {
			break
		}
	}

	if err == io.EOF {
		err = nil
	}

	return err
}

type plainBodyReader struct {
	client                tcp.Client
	maxBodyLen, bytesLeft uint
}

func newPlainBodyReader(client tcp.Client, maxBodyLen uint) plainBodyReader {
	return plainBodyReader{
		client:     client,
		maxBodyLen: maxBodyLen,
	}
}

func (p *plainBodyReader) init(request *http.Request) {
	p.bytesLeft = uint(request.ContentLength)
}

func (p *plainBodyReader) read() (body []byte, err error) {
	if p.bytesLeft == 0 {
		return nil, io.EOF
	}

	if p.bytesLeft > p.maxBodyLen {
		return nil, status.ErrBodyTooLarge
	}

	data, err := p.client.Read()
	if err != nil {
		return nil, err
	}

	if dataLen := uint(len(data)); dataLen >= p.bytesLeft {
		// the rest of the data belongs to the next request on the wire
		body, data = data[:p.bytesLeft], data[p.bytesLeft:]
		p.client.Unread(data)
		p.bytesLeft = 0
		err = io.EOF
	} else {
		p.bytesLeft -= dataLen
		body = data
	}

	return body, err
}

type chunkedBodyReader struct {
	client               tcp.Client
	maxBodyLen, received uint
	hasTrailer           bool
	parser               *chunkedbody.Parser
}

func newChunkedBodyReader(client tcp.Client, maxBodyLen uint, parser *chunkedbody.Parser) chunkedBodyReader {
	return chunkedBodyReader{
		client:     client,
		maxBodyLen: maxBodyLen,
		parser:     parser,
	}
}

func (c *chunkedBodyReader) init(request *http.Request) {
	c.hasTrailer = request.Encoding.HasTrailer
	c.received = 0
}

func (c *chunkedBodyReader) read() (body []byte, err error) {
	data, err := c.client.Read()
	if err != nil {
		return nil, err
	}

	chunk, extra, err := c.parser.Parse(data, c.hasTrailer)
	switch err {
	case nil, io.EOF:
	default:
		return nil, status.ErrBadChunk
	}

	received, overflows := adduint(c.received, uint(len(chunk)))
	if overflows || received > c.maxBodyLen {
		return nil, status.ErrBodyTooLarge
	}

	c.received = received
	c.client.Unread(extra)

	return chunk, err
}

func adduint(x, y uint) (uint, bool) {
	return x + y, math.MaxUint-x < y
}
