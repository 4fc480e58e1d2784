package httpchars

var (
	CRLF    = []byte("\r\n")
	COLONSP = ": "
)
