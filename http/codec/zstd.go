package codec

import (
	"github.com/klauspost/compress/zstd"
)

type zstdCodec struct{}

// NewZSTD returns the zstd content coding.
func NewZSTD() Codec {
	return zstdCodec{}
}

func (zstdCodec) Token() string {
	return "zstd"
}

func (zstdCodec) NewCompressor() Compressor {
	w, err := zstd.NewWriter(nil)
	if err != nil {
		// no options are passed, so no options can be invalid
		panic(err)
	}

	return w
}
