package http1

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dchest/uniuri"
	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/method"
	"github.com/ember-web/ember/http/proto"
	"github.com/ember-web/ember/http/status"
	"github.com/ember-web/ember/internal/server/tcp/dummy"
	"github.com/ember-web/ember/internal/transport"
	"github.com/ember-web/ember/kv"
	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/utils/buffer"
	"github.com/stretchr/testify/require"
)

func getParser() (*Parser, *http.Request) {
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
	body := NewBody(
		dummy.NewNopClient(), chunkedbody.NewParser(chunkedSettings), cfg.Body,
	)
	request := http.NewRequest(kv.New(), http.NewResponse(), nil, body)

	return NewParser(request, keyBuff, valBuff, startLineBuff, cfg.Headers), request
}

type wantedRequest struct {
	Headers  http.Headers
	Path     string
	Method   method.Method
	Protocol proto.Proto
}

func compareRequests(t *testing.T, wanted wantedRequest, actual *http.Request) {
	require.Equal(t, wanted.Method, actual.Method)
	require.Equal(t, wanted.Path, actual.Path)
	require.Equal(t, wanted.Protocol, actual.Proto)

	for _, key := range wanted.Headers.Keys() {
		require.Equal(t, wanted.Headers.Values(key), actual.Headers.Values(key))
	}
}

func splitIntoParts(req []byte, n int) (parts [][]byte) {
	for i := 0; i < len(req); i += n {
		end := i + n
		if end > len(req) {
			end = len(req)
		}

		parts = append(parts, req[i:end])
	}

	return parts
}

func feedPartially(
	parser *Parser, rawRequest []byte, n int,
) (state transport.RequestState, extra []byte, err error) {
	parts := splitIntoParts(rawRequest, n)

	for _, chunk := range parts {
		state, extra, err = parser.Parse(chunk)
		if err != nil || state != transport.Pending {
			return state, extra, err
		}

		for len(extra) > 0 {
			state, extra, err = parser.Parse(extra)
			if state != transport.Pending {
				return state, extra, err
			}
		}
	}

	return state, extra, nil
}

func TestParser_Parse_GET(t *testing.T) {
	parser, request := getParser()

	t.Run("simple GET", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\n\r\n"
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, transport.HeadersCompleted, state)
		require.Empty(t, extra)

		wanted := wantedRequest{
			Method:   method.GET,
			Path:     "/",
			Protocol: proto.HTTP11,
			Headers:  kv.New(),
		}

		compareRequests(t, wanted, request)
		require.NoError(t, request.Clear())
	})

	t.Run("normal GET", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nHello: World!\r\nEaster: Egg\r\n\r\n"
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, transport.HeadersCompleted, state)
		require.Empty(t, extra)

		wanted := wantedRequest{
			Method:   method.GET,
			Path:     "/",
			Protocol: proto.HTTP11,
			Headers: kv.NewFromMap(map[string][]string{
				"hello": {"World!"},
			}),
		}

		compareRequests(t, wanted, request)
		require.NoError(t, request.Clear())
	})

	t.Run("multiple header values", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nAccept: one,two\r\nAccept: three\r\n\r\n"
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, transport.HeadersCompleted, state)
		require.Empty(t, extra)

		wanted := wantedRequest{
			Method:   method.GET,
			Path:     "/",
			Protocol: proto.HTTP11,
			Headers: kv.NewFromMap(map[string][]string{
				"accept": {"one,two", "three"},
			}),
		}

		compareRequests(t, wanted, request)
		require.NoError(t, request.Clear())
	})

	t.Run("only lf", func(t *testing.T) {
		raw := "GET / HTTP/1.1\nHello: World!\n\n"
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, transport.HeadersCompleted, state)
		require.Empty(t, extra)

		wanted := wantedRequest{
			Method:   method.GET,
			Path:     "/",
			Protocol: proto.HTTP11,
			Headers: kv.NewFromMap(map[string][]string{
				"hello": {"World!"},
			}),
		}

		compareRequests(t, wanted, request)
		require.NoError(t, request.Clear())
	})

	t.Run("fuzz GET by different chunk sizes", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nHello: World!\r\nEaster: Egg\r\n\r\n"

		for i := 1; i < len(raw); i++ {
			state, extra, err := feedPartially(parser, []byte(raw), i)
			require.NoError(t, err, i)
			require.Empty(t, extra)
			require.Equal(t, transport.HeadersCompleted, state)

			wanted := wantedRequest{
				Method:   method.GET,
				Path:     "/",
				Protocol: proto.HTTP11,
				Headers: kv.NewFromMap(map[string][]string{
					"hello": {"World!"},
				}),
			}

			compareRequests(t, wanted, request)
			require.NoError(t, request.Clear())
		}
	})

	t.Run("absolute path", func(t *testing.T) {
		raw := "GET http://www.w3.org/pub/WWW/TheProject.html HTTP/1.1\r\n\r\n"
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, transport.HeadersCompleted, state)
		require.Empty(t, extra)

		wanted := wantedRequest{
			Method:   method.GET,
			Path:     "http://www.w3.org/pub/WWW/TheProject.html",
			Protocol: proto.HTTP11,
			Headers:  kv.New(),
		}

		compareRequests(t, wanted, request)
		require.NoError(t, request.Clear())
	})

	t.Run("query in a path", func(t *testing.T) {
		raw := "GET /path?hello=world HTTP/1.1\r\n\r\n"
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, transport.HeadersCompleted, state)
		require.Empty(t, extra)

		wanted := wantedRequest{
			Method:   method.GET,
			Path:     "/path",
			Protocol: proto.HTTP11,
			Headers:  kv.New(),
		}

		compareRequests(t, wanted, request)
		require.Equal(t, "hello=world", request.Query)
		require.NoError(t, request.Clear())
	})

	t.Run("content-length", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nContent-Length: 13\n\r\nHello, world!"
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, transport.HeadersCompleted, state)
		require.Equal(t, "Hello, world!", string(extra))
		require.Equal(t, 13, request.ContentLength)
		require.NoError(t, request.Clear())

		raw = "GET / HTTP/1.1\r\nContent-Length: 13\r\nHi-Hi: ha-ha\r\n\r\nHello, world!"
		state, extra, err = parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, transport.HeadersCompleted, state)
		require.Equal(t, "Hello, world!", string(extra))
		require.Equal(t, 13, request.ContentLength)
		require.True(t, request.Headers.Has("hi-hi"))
		require.Equal(t, "ha-ha", request.Headers.Value("hi-hi"))
		require.NoError(t, request.Clear())
	})

	t.Run("transfer-encoding chunked", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n"
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, transport.HeadersCompleted, state)
		require.Empty(t, extra)
		require.True(t, request.Encoding.Chunked)
		require.NoError(t, request.Clear())
	})

	t.Run("connection and expect", func(t *testing.T) {
		raw := "GET / HTTP/1.0\r\nConnection: keep-alive\r\nExpect: 100-continue\r\n\r\n"
		state, _, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, transport.HeadersCompleted, state)
		require.Equal(t, proto.HTTP10, request.Proto)
		require.Equal(t, "keep-alive", request.Connection)
		require.Equal(t, "100-continue", request.Expect)
		require.NoError(t, request.Clear())
	})
}

func TestParser_Parse_POST(t *testing.T) {
	parser, request := getParser()

	t.Run("fuzz POST by different chunk sizes", func(t *testing.T) {
		raw := "POST / HTTP/1.1\r\nHello: World!\r\nContent-Length: 13\r\n\r\nHello, World!"

		for i := 1; i < len(raw); i++ {
			state, _, err := feedPartially(parser, []byte(raw), i)
			require.NoError(t, err)
			require.Equal(t, transport.HeadersCompleted, state)

			wanted := wantedRequest{
				Method:   method.POST,
				Path:     "/",
				Protocol: proto.HTTP11,
				Headers: kv.NewFromMap(map[string][]string{
					"hello": {"World!"},
				}),
			}

			compareRequests(t, wanted, request)
			require.Equal(t, 13, request.ContentLength)
			require.NoError(t, request.Clear())
		}
	})
}

func TestParser_Parse_Negative(t *testing.T) {
	t.Run("no method", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte(" / HTTP/1.1\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrMalformedRequest.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("no path", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET HTTP/1.1\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrMalformedRequest.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("whitespace as a path", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET  HTTP/1.1\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrMalformedRequest.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("control character in a path", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET /hel\x00lo HTTP/1.1\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrMalformedRequest.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("short invalid method", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GE / HTTP/1.1\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrMethodNotImplemented.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("long invalid method", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("PATCHPOSTPUT / HTTP/1.1\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrMethodNotImplemented.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("short invalid protocol", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET / HTT\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrUnsupportedProtocol.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("long invalid protocol", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET / HTTPS/1.1\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrUnsupportedProtocol.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("unsupported minor version", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET / HTTP/1.2\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrUnsupportedProtocol.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("unsupported major version", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET / HTTP/42.1\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrUnsupportedProtocol.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("simple request", func(t *testing.T) {
		// HTTP/0.9 simple requests carry no protocol token and aren't supported
		parser, _ := getParser()
		raw := []byte("GET / \r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrUnsupportedProtocol.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("lfcr crlf break sequence", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET / HTTP/1.1\n\r\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrMalformedRequest.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("lfcr lfcr break sequence", func(t *testing.T) {
		// the parser accepts both crlf and bare lf line breaks, so the sequence
		// reads as LF CRLF CR, and the trailing CR is returned back as extra
		parser, _ := getParser()
		raw := []byte("GET / HTTP/1.1\n\r\n\r")
		state, extra, err := parser.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, []byte("\r"), extra)
		require.Equal(t, transport.HeadersCompleted, state)
	})

	t.Run("invalid content length", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET / HTTP/1.1\r\nContent-Length: 1f5\r\n\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrMalformedRequest.Error())
	})

	t.Run("repeated content-length", func(t *testing.T) {
		// two Content-Length fields must not concatenate into one number
		parser, _ := getParser()
		raw := []byte("POST / HTTP/1.1\r\nContent-Length: 5\r\nContent-Length: 5\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrBadRequest.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("space between content-length digits", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("POST / HTTP/1.1\r\nContent-Length: 1 2\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrMalformedRequest.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("content-length with chunked", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("POST / HTTP/1.1\r\nContent-Length: 0\r\nTransfer-Encoding: chunked\r\n\r\n")
		state, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrAmbiguousFraming.Error())
		require.Equal(t, transport.Error, state)
	})

	t.Run("too long header key", func(t *testing.T) {
		parser, _ := getParser()
		cfg := config.Default().Headers
		raw := fmt.Sprintf(
			"GET / HTTP/1.1\r\n%s: some value\r\n\r\n",
			strings.Repeat("a", cfg.MaxKeyLength*cfg.Number.Maximal+1),
		)
		_, _, err := parser.Parse([]byte(raw))
		require.EqualError(t, err, status.ErrHeaderFieldsTooLarge.Error())
	})

	t.Run("too long header value", func(t *testing.T) {
		parser, _ := getParser()
		raw := fmt.Sprintf(
			"GET / HTTP/1.1\r\nSome-Header: %s\r\n\r\n",
			strings.Repeat("a", config.Default().Headers.MaxValueLength+1),
		)
		_, _, err := parser.Parse([]byte(raw))
		require.EqualError(t, err, status.ErrHeaderFieldsTooLarge.Error())
	})

	t.Run("too many headers", func(t *testing.T) {
		parser, _ := getParser()
		hdrs := genHeaders(config.Default().Headers.Number.Maximal + 1)
		raw := fmt.Sprintf(
			"GET / HTTP/1.1\r\n%s\r\n\r\n",
			strings.Join(hdrs, "\r\n"),
		)
		_, _, err := parser.Parse([]byte(raw))
		require.EqualError(t, err, status.ErrTooManyHeaders.Error())
	})
}

func TestParseEncodingString(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		toks, chunked := parseEncodingString(make([]string, 0, 10), "")
		require.Empty(t, toks)
		require.False(t, chunked)
	})

	t.Run("only chunked", func(t *testing.T) {
		toks, chunked := parseEncodingString(make([]string, 0, 10), "chunked")
		require.Equal(t, []string{"chunked"}, toks)
		require.True(t, chunked)
	})

	t.Run("only gzip", func(t *testing.T) {
		toks, chunked := parseEncodingString(make([]string, 0, 10), "gzip")
		require.Equal(t, []string{"gzip"}, toks)
		require.False(t, chunked)
	})

	t.Run("multiple tokens without space", func(t *testing.T) {
		toks, chunked := parseEncodingString(make([]string, 0, 10), "gzip,chunked")
		require.Equal(t, []string{"gzip", "chunked"}, toks)
		require.True(t, chunked)
	})

	t.Run("multiple tokens with space", func(t *testing.T) {
		toks, _ := parseEncodingString(make([]string, 0, 10), "gzip,  chunked")
		require.Equal(t, []string{"gzip", "chunked"}, toks)
	})

	t.Run("extra commas", func(t *testing.T) {
		toks, _ := parseEncodingString(make([]string, 0, 10), " , gzip, chunked, ")
		require.Equal(t, []string{"gzip", "chunked"}, toks)
	})

	t.Run("overflow tokens limit", func(t *testing.T) {
		toks, _ := parseEncodingString(make([]string, 0, 1), "gzip,flate,chunked")
		require.Nil(t, toks)
	})
}

func genHeaders(n int) (out []string) {
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("%s: some value", uniuri.New()))
	}

	return out
}
