package codec

import (
	"github.com/andybalholm/brotli"
)

type brotliCodec struct{}

// NewBrotli returns the brotli content coding.
func NewBrotli() Codec {
	return brotliCodec{}
}

func (brotliCodec) Token() string {
	return "br"
}

func (brotliCodec) NewCompressor() Compressor {
	return brotli.NewWriter(nil)
}
