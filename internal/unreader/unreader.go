package unreader

// Unreader holds bytes which were read off the wire but belong to the next
// request (e.g. pipelined ones), so the next read returns them first.
type Unreader struct {
	pending []byte
}

func (u *Unreader) PendingOr(or func() ([]byte, error)) (data []byte, err error) {
	if len(u.pending) > 0 {
		data, u.pending = u.pending, nil
		return data, nil
	}

	return or()
}

func (u *Unreader) Unread(b []byte) {
	u.pending = b
}

func (u *Unreader) Reset() {
	u.pending = nil
}
