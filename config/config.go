package config

import (
	"time"
)

type (
	HeadersNumber struct {
		Default, Maximal int
	}

	HeadersValuesSpace struct {
		Default, Maximal int
	}

	RequestLineSize struct {
		Default, Maximal int
	}
)

type (
	URL struct {
		// BufferSize is a shared buffer storing the request path and, between the
		// calls, the method and the protocol tokens when a read boundary splits
		// them. Setting the maximal boundary too low results in ambiguous errors.
		BufferSize RequestLineSize
	}

	Headers struct {
		// Number is responsible for the headers map size.
		// Default value is the initial size of the allocated headers map.
		// Maximal value is the maximal number of headers a request may carry
		Number HeadersNumber
		// MaxKeyLength is the maximal length of a header key
		MaxKeyLength int
		// ValueSpace limits the amount of memory occupied by header values
		ValueSpace HeadersValuesSpace
		// MaxValueLength is the maximal length of a single header value
		MaxValueLength int
		// MaxEncodingTokens limits how many encodings may be applied to a body
		// of a single request
		MaxEncodingTokens int
		// Default headers are implicitly included into every response, unless
		// a response explicitly overrides them
		Default map[string]string
	}

	Body struct {
		// MaxSize is the maximal size of the request body. Exceeding it results
		// in a 413 Payload Too Large reply, and the connection is closed
		MaxSize uint
		// MaxChunkSize is the maximal size of a single chunk of a chunk-encoded
		// body
		MaxChunkSize int64
	}

	NET struct {
		// ReadBufferSize is the size of the buffer used to read from the socket
		ReadBufferSize int
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no
		// data arrived within this period of time, the connection is closed
		ReadTimeout time.Duration
	}

	HTTP struct {
		// ResponseBuffSize is the initial size of the buffer the response is
		// rendered into
		ResponseBuffSize int
		// FileBuffSize is the size of the buffer used to stream attachments
		// (files and other io.Readers) into the network
		FileBuffSize int
	}

	Compression struct {
		// Enabled toggles response compression negotiation as a whole
		Enabled bool
		// SmallBody limits how big a buffered response body must be in order
		// to be considered for compression. Tiny payloads only grow when
		// compressed
		SmallBody int
	}
)

// Config holds settings used across ember, mainly restrictions, limits and
// pre-allocations.
//
// Always modify the defaults (returned via Default()) instead of constructing
// the struct manually, otherwise zero limits will reject everything.
type Config struct {
	URL         URL
	Headers     Headers
	Body        Body
	NET         NET
	HTTP        HTTP
	Compression Compression
}

// Default returns the default configuration. The defaults are well-balanced,
// with fairly permitting maximals.
func Default() Config {
	return Config{
		URL: URL{
			BufferSize: RequestLineSize{
				Default: 2 * 1024,
				// most web entities limit the request line to 4-8kb, so 16kb is
				// pretty much tolerant
				Maximal: 16 * 1024,
			},
		},
		Headers: Headers{
			Number: HeadersNumber{
				Default: 10,
				Maximal: 50,
			},
			MaxKeyLength: 100,
			ValueSpace: HeadersValuesSpace{
				Default: 1 * 1024, // 1kb is fairly enough for most requests.
				Maximal: 8 * 1024, // although there might be extremely long cookies
			},
			MaxValueLength:    8 * 1024,
			MaxEncodingTokens: 4, // 1 for chunked, leaving at most 3 compressors to be composed
			Default:           map[string]string{"Server": "ember"},
		},
		Body: Body{
			MaxSize:      512 * 1024 * 1024, // 512 megabytes
			MaxChunkSize: 128 * 1024,
		},
		NET: NET{
			ReadBufferSize: 4 * 1024,
			ReadTimeout:    90 * time.Second,
		},
		HTTP: HTTP{
			ResponseBuffSize: 1 * 1024,
			FileBuffSize:     64 * 1024,
		},
		Compression: Compression{
			Enabled:   true,
			SmallBody: 1024,
		},
	}
}
