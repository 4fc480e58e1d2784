package codec

import (
	"github.com/klauspost/compress/flate"
)

type deflateCodec struct{}

// NewDeflate returns the deflate content coding.
func NewDeflate() Codec {
	return deflateCodec{}
}

func (deflateCodec) Token() string {
	return "deflate"
}

func (deflateCodec) NewCompressor() Compressor {
	w, err := flate.NewWriter(nil, flate.DefaultCompression)
	if err != nil {
		// the default compression level can't be rejected
		panic(err)
	}

	return w
}
