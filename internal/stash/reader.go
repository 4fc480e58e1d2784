package stash

type Retriever func() ([]byte, error)

// Reader adapts a chunk-retrieving function to io.Reader, stashing the bytes
// the caller's buffer couldn't fit.
type Reader struct {
	source  Retriever
	pending []byte
	error   error
}

func New(source Retriever) *Reader {
	return &Reader{source: source}
}

func (r *Reader) Read(b []byte) (n int, err error) {
	if len(r.pending) == 0 && r.error == nil {
		r.pending, r.error = r.source()
	}

	n = copy(b, r.pending)
	r.pending = r.pending[n:]

	if len(r.pending) == 0 && r.error != nil {
		err = r.error
	}

	return n, err
}

func (r *Reader) Reset() {
	r.pending = nil
	r.error = nil
}
