package http

import (
	"strings"
	"testing"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/codec"
	"github.com/ember-web/ember/http/status"
	"github.com/ember-web/ember/internal/server/tcp"
	"github.com/ember-web/ember/internal/server/tcp/dummy"
	"github.com/ember-web/ember/internal/transport"
	"github.com/ember-web/ember/internal/transport/http1"
	"github.com/ember-web/ember/kv"
	"github.com/ember-web/ember/router"
	"github.com/ember-web/ember/router/simple"
	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/utils/buffer"
	"github.com/stretchr/testify/require"
)

func newServer(client tcp.Client, r router.Router) (*Server, *http.Request, transport.Transport) {
	cfg := config.Default()
	keyBuff := buffer.New(
		cfg.Headers.MaxKeyLength*cfg.Headers.Number.Default,
		cfg.Headers.MaxKeyLength*cfg.Headers.Number.Maximal,
	)
	valBuff := buffer.New(
		cfg.Headers.ValueSpace.Default, cfg.Headers.ValueSpace.Maximal,
	)
	startLineBuff := buffer.New(
		cfg.URL.BufferSize.Default, cfg.URL.BufferSize.Maximal,
	)
	chunkedSettings := chunkedbody.DefaultSettings()
	chunkedSettings.MaxChunkSize = cfg.Body.MaxChunkSize
	body := http1.NewBody(client, chunkedbody.NewParser(chunkedSettings), cfg.Body)
	request := http.NewRequest(kv.New(), http.NewResponse(), nil, body)
	trans := http1.New(
		request, keyBuff, valBuff, startLineBuff,
		make([]byte, 0, cfg.HTTP.ResponseBuffSize), nil,
		codec.NewRegistry(), &cfg,
	)

	return NewServer(r, cfg.Body), request, trans
}

func echoPath(request *http.Request) *http.Response {
	return http.String(request, request.Path)
}

func disperse(data []byte, n int) (parts [][]byte) {
	for len(data) > 0 {
		end := n
		if end > len(data) {
			end = len(data)
		}

		parts = append(parts, data[:end])
		data = data[end:]
	}

	return parts
}

func TestServer(t *testing.T) {
	const N = 10

	t.Run("simple get", func(t *testing.T) {
		raw := []byte("GET / HTTP/1.1\r\nAccept-Encoding: identity\r\n\r\n")
		client := dummy.NewCircularClient(raw)
		r := simple.New(func(request *http.Request) *http.Response {
			require.Equal(t, "identity", request.Headers.Value("accept-encoding"))
			return http.Respond(request)
		}, func(request *http.Request, err error) *http.Response {
			require.Failf(t, "unexpected error", "unexpected error: %s", err)
			return nil
		})
		server, request, trans := newServer(client, r)

		for i := 0; i < N; i++ {
			require.True(t, server.HandleRequest(client, request, trans))
		}

		require.Contains(t, string(client.Written()), "HTTP/1.1 200 OK\r\n")
	})

	t.Run("pipelined requests are answered in order", func(t *testing.T) {
		raw := []byte(
			"GET /first HTTP/1.1\r\n\r\nGET /second HTTP/1.1\r\n\r\nGET /third HTTP/1.1\r\n\r\n",
		)
		client := dummy.NewCircularClient(raw).OneTime()
		server, request, trans := newServer(client, simple.New(echoPath))

		for i := 0; i < 3; i++ {
			require.True(t, server.HandleRequest(client, request, trans))
		}

		written := string(client.Written())
		first := strings.Index(written, "/first")
		second := strings.Index(written, "/second")
		third := strings.Index(written, "/third")
		require.NotEqual(t, -1, first)
		require.True(t, first < second && second < third, written)

		// the stream is drained, nothing arrives anymore
		require.False(t, server.HandleRequest(client, request, trans))
	})

	t.Run("request split across reads", func(t *testing.T) {
		raw := []byte("GET /split HTTP/1.1\r\nHello: World!\r\n\r\n")

		for size := 1; size < len(raw); size++ {
			client := dummy.NewCircularClient(disperse(raw, size)...).OneTime()
			server, request, trans := newServer(client, simple.New(echoPath))

			for server.HandleRequest(client, request, trans) {
			}

			require.Contains(t, string(client.Written()), "/split", size)
		}
	})

	t.Run("connection close by handler", func(t *testing.T) {
		raw := []byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
		client := dummy.NewCircularClient(raw)
		server, request, trans := newServer(client, simple.New(http.Respond))

		require.False(t, server.HandleRequest(client, request, trans))
	})

	t.Run("HTTP/1.0 without keep-alive", func(t *testing.T) {
		raw := []byte("GET / HTTP/1.0\r\n\r\n")
		client := dummy.NewCircularClient(raw)
		server, request, trans := newServer(client, simple.New(http.Respond))

		require.False(t, server.HandleRequest(client, request, trans))
		require.Contains(t, string(client.Written()), "HTTP/1.0 200 OK\r\n")
	})
}

func TestServer_POST(t *testing.T) {
	const N = 10

	t.Run("POST hello world", func(t *testing.T) {
		raw := []byte("POST / HTTP/1.1\r\nContent-Length: 13\r\n\r\nHello, world!")
		client := dummy.NewCircularClient(disperse(raw, 5)...)
		r := simple.New(func(request *http.Request) *http.Response {
			body, err := request.Body.String()
			require.NoError(t, err)
			require.Equal(t, "Hello, world!", body)
			return http.Respond(request)
		})
		server, request, trans := newServer(client, r)

		for i := 0; i < N; i++ {
			require.True(t, server.HandleRequest(client, request, trans))
		}
	})

	t.Run("unread body is discarded", func(t *testing.T) {
		body := strings.Repeat("a", 10_000)
		raw := []byte("POST / HTTP/1.1\r\nContent-Length: 10000\r\n\r\n" + body)
		dispersed := disperse(raw, config.Default().NET.ReadBufferSize)
		client := dummy.NewCircularClient(dispersed...)
		server, request, trans := newServer(client, simple.New(http.Respond))

		for i := 0; i < N; i++ {
			for j := 0; j < len(dispersed); j++ {
				require.True(t, server.HandleRequest(client, request, trans))
			}
		}
	})

	t.Run("chunked body is discarded", func(t *testing.T) {
		chunked := "d\r\nHello, world!\r\n0\r\n\r\n"
		raw := []byte("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" + chunked)
		client := dummy.NewCircularClient(raw)
		server, request, trans := newServer(client, simple.New(http.Respond))

		for i := 0; i < N; i++ {
			require.True(t, server.HandleRequest(client, request, trans))
		}
	})
}

func TestServer_Negative(t *testing.T) {
	t.Run("malformed request", func(t *testing.T) {
		raw := []byte("GET / HTTP/1.1\r\nno colon in here\r\n\r\n")
		client := dummy.NewCircularClient(raw).OneTime()
		server, request, trans := newServer(client, simple.New(http.Respond))

		require.False(t, server.HandleRequest(client, request, trans))
		require.Contains(t, string(client.Written()), "400 Bad Request")
	})

	t.Run("unsupported protocol still gets a full status line", func(t *testing.T) {
		raw := []byte("GET / HTTP/2.0\r\n\r\n")
		client := dummy.NewCircularClient(raw).OneTime()
		server, request, trans := newServer(client, simple.New(http.Respond))

		require.False(t, server.HandleRequest(client, request, trans))
		written := string(client.Written())
		require.True(t, strings.HasPrefix(written, "HTTP/1.1 505 "), written)
	})

	t.Run("repeated content-length", func(t *testing.T) {
		raw := []byte("POST / HTTP/1.1\r\nContent-Length: 5\r\nContent-Length: 5\r\n\r\nhello")
		client := dummy.NewCircularClient(raw).OneTime()
		r := simple.New(func(request *http.Request) *http.Response {
			require.Fail(t, "must not reach the handler")
			return nil
		})
		server, request, trans := newServer(client, r)

		require.False(t, server.HandleRequest(client, request, trans))
		require.Contains(t, string(client.Written()), "400 Bad Request")
	})

	t.Run("body over the limit is rejected upfront", func(t *testing.T) {
		limit := config.Default().Body.MaxSize
		raw := []byte("POST / HTTP/1.1\r\nContent-Length: 549755813888\r\n\r\n")
		client := dummy.NewCircularClient(raw).OneTime()
		r := simple.New(func(request *http.Request) *http.Response {
			require.Failf(t, "must not reach the handler", "limit=%d", limit)
			return nil
		})
		server, request, trans := newServer(client, r)

		require.False(t, server.HandleRequest(client, request, trans))
		require.Contains(t, string(client.Written()), "413 Payload Too Large")
	})

	t.Run("expectations are refused", func(t *testing.T) {
		raw := []byte("POST / HTTP/1.1\r\nExpect: 100-continue\r\nContent-Length: 5\r\n\r\nhello")
		client := dummy.NewCircularClient(raw).OneTime()
		server, request, trans := newServer(client, simple.New(http.Respond))

		require.False(t, server.HandleRequest(client, request, trans))
		require.Contains(t, string(client.Written()), "417 Expectation Failed")
	})

	t.Run("ambiguous framing", func(t *testing.T) {
		raw := []byte("POST / HTTP/1.1\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\n")
		client := dummy.NewCircularClient(raw).OneTime()
		server, request, trans := newServer(client, simple.New(http.Respond))

		require.False(t, server.HandleRequest(client, request, trans))
		written := string(client.Written())
		require.Contains(t, written, "400 Bad Request")
		require.Contains(t, written, status.ErrAmbiguousFraming.Error())
	})
}
