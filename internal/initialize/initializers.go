package initialize

import (
	"net"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/codec"
	"github.com/ember-web/ember/internal/server/tcp"
	"github.com/ember-web/ember/internal/transport"
	"github.com/ember-web/ember/internal/transport/http1"
	"github.com/ember-web/ember/kv"
	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/utils/buffer"
)

func NewClient(netCfg config.NET, conn net.Conn) tcp.Client {
	readBuff := make([]byte, netCfg.ReadBufferSize)

	return tcp.NewClient(conn, netCfg.ReadTimeout, readBuff)
}

func NewKeyValueBuffs(s config.Headers) (*buffer.Buffer, *buffer.Buffer) {
	keyBuff := buffer.New(
		s.MaxKeyLength*s.Number.Default,
		s.MaxKeyLength*s.Number.Maximal,
	)
	valBuff := buffer.New(
		s.ValueSpace.Default,
		s.ValueSpace.Maximal,
	)

	return keyBuff, valBuff
}

func NewBody(client tcp.Client, body config.Body) *http1.Body {
	chunkedBodySettings := chunkedbody.DefaultSettings()
	chunkedBodySettings.MaxChunkSize = body.MaxChunkSize

	return http1.NewBody(client, chunkedbody.NewParser(chunkedBodySettings), body)
}

func NewRequest(s config.Config, conn net.Conn, body http.Body) *http.Request {
	hdrs := kv.NewPrealloc(s.Headers.Number.Default)
	response := http.NewResponse()

	return http.NewRequest(hdrs, response, conn.RemoteAddr(), body)
}

// NewCodecs instantiates every supported response coding. The registry
// preference order is the declaration order here.
func NewCodecs() *codec.Registry {
	return codec.NewRegistry(
		codec.NewGZIP(), codec.NewBrotli(), codec.NewZSTD(), codec.NewDeflate(),
	)
}

func NewTransport(s config.Config, req *http.Request, codecs *codec.Registry) transport.Transport {
	keyBuff, valBuff := NewKeyValueBuffs(s.Headers)
	startLineBuff := buffer.New(
		s.URL.BufferSize.Default,
		s.URL.BufferSize.Maximal,
	)
	respBuff := make([]byte, 0, s.HTTP.ResponseBuffSize)

	return http1.New(
		req,
		keyBuff, valBuff, startLineBuff,
		respBuff,
		s.Headers.Default,
		codecs,
		&s,
	)
}
