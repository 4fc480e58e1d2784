package codec

import (
	"io"
	"strings"
)

// Codec produces compressors for a single content coding token.
type Codec interface {
	// Token returns the coding token the codec is registered under.
	Token() string
	// NewCompressor returns a fresh compressor instance. Instances are bound
	// to a single connection and reused across its responses via Reset.
	NewCompressor() Compressor
}

type Compressor interface {
	io.WriteCloser
	Reset(dst io.Writer)
}

// Registry holds the enabled codecs in preference order.
type Registry struct {
	codecs []Codec
}

func NewRegistry(codecs ...Codec) *Registry {
	return &Registry{codecs: codecs}
}

// Select returns the most preferred codec accepted by the client, or nil if
// none of the accepted tokens is registered. Quality markers are ignored:
// a token with any q-value counts as accepted, q=0 included, as clients
// sending q=0 for a coding they list are practically nonexistent.
func (r *Registry) Select(accept []string) Codec {
	for _, codec := range r.codecs {
		for _, token := range accept {
			if name, _, _ := strings.Cut(token, ";"); strings.TrimSpace(name) == codec.Token() {
				return codec
			}
		}
	}

	return nil
}

func (r *Registry) Empty() bool {
	return r == nil || len(r.codecs) == 0
}
