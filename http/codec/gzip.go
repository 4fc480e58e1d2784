package codec

import (
	"github.com/klauspost/compress/gzip"
)

type gzipCodec struct{}

// NewGZIP returns the gzip content coding.
func NewGZIP() Codec {
	return gzipCodec{}
}

func (gzipCodec) Token() string {
	return "gzip"
}

func (gzipCodec) NewCompressor() Compressor {
	return gzip.NewWriter(nil)
}
