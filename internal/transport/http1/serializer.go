package http1

import (
	"bytes"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/codec"
	"github.com/ember-web/ember/http/method"
	"github.com/ember-web/ember/http/mime"
	"github.com/ember-web/ember/http/proto"
	"github.com/ember-web/ember/http/status"
	"github.com/ember-web/ember/internal/httpchars"
	"github.com/ember-web/ember/internal/transport"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

const (
	contentType      = "Content-Type: "
	contentEncoding  = "Content-Encoding: "
	transferEncoding = "Transfer-Encoding: "
	contentLength    = "Content-Length: "
)

// minimalFileBuffSize is the floor for the attachment buffer. Smaller values
// are bumped up with a warning, as the chunked writer needs the room for its
// own framing.
const minimalFileBuffSize = 16

var chunkedFinalizer = []byte("0\r\n\r\n")

// Serializer renders responses, deciding on exactly one framing mode per
// reply: Content-Length when the body size is known upfront, chunked
// otherwise. Compression, when negotiated, is applied before framing, so a
// compressed streamed body is a chunked sequence of compressed segments.
type Serializer struct {
	buff []byte
	// fileBuff isn't allocated until an attachment is actually sent, saving
	// the memory on connections which never send files
	fileBuff       []byte
	fileBuffSize   int
	defaultHeaders defaultHeaders
	codecs         *codec.Registry
	compression    config.Compression
	compressors    map[string]codec.Compressor
	compressBuff   bytes.Buffer
	chunked        chunkWriter
}

func NewSerializer(
	buff []byte, fileBuffSize int, defHdrs map[string]string,
	codecs *codec.Registry, compression config.Compression,
) *Serializer {
	if fileBuffSize < minimalFileBuffSize {
		log.Printf("misconfiguration: file buffer size (Config.HTTP.FileBuffSize) is set to %d, "+
			"however the minimal possible value is %d. Setting it hard to %d\n",
			fileBuffSize, minimalFileBuffSize, minimalFileBuffSize,
		)

		fileBuffSize = minimalFileBuffSize
	}

	return &Serializer{
		buff:           buff[:0],
		fileBuffSize:   fileBuffSize,
		defaultHeaders: processDefaultHeaders(defHdrs),
		codecs:         codecs,
		compression:    compression,
	}
}

// Write renders the response and pushes it into the writer. The returned
// error is status.ErrCloseConnection when the connection must not be re-used,
// either because of a write failure or because keep-alive was not negotiated.
func (d *Serializer) Write(
	protocol proto.Proto, request *http.Request, response *http.Response, writer transport.Writer,
) (err error) {
	defer d.clear()

	fields := response.Reveal()
	d.renderResponseLine(protocol, fields)

	if fields.Attachment.Content() != nil {
		err = d.sendAttachment(request, fields, writer)
	} else {
		err = d.sendBuffered(request, fields, writer)
	}

	if err == nil && !isKeepAlive(protocol, request) {
		err = status.ErrCloseConnection
	}

	return err
}

// sendBuffered renders a fully-buffered body with Content-Length framing,
// compressing it first if the negotiation succeeded.
func (d *Serializer) sendBuffered(request *http.Request, fields *http.Fields, writer transport.Writer) error {
	body := fields.Body

	if c := d.negotiate(request, fields); c != nil && len(body) >= d.compression.SmallBody {
		compressed, err := d.compress(c, body)
		if err != nil {
			return status.ErrCloseConnection
		}

		body = compressed
		d.renderKnownHeader(contentEncoding, c.Token())
	}

	d.renderHeaders(fields)
	d.renderContentLength(int64(len(body)))
	d.crlf()

	if request.Method != method.HEAD {
		// HEAD responses mirror GET ones, except the body is forcibly absent
		// even though Content-Length is set
		d.buff = append(d.buff, body...)
	}

	if err := writer.Write(d.buff); err != nil {
		return status.ErrCloseConnection
	}

	return nil
}

// sendAttachment streams an arbitrary io.Reader out. Sized attachments keep
// Content-Length framing and are passed through verbatim; unsized ones are
// chunk-encoded and may be compressed on the fly.
func (d *Serializer) sendAttachment(
	request *http.Request, fields *http.Fields, writer transport.Writer,
) (err error) {
	size := fields.Attachment.Size()
	defer fields.Attachment.Close()

	var cmp codec.Compressor
	if size <= 0 {
		if c := d.negotiate(request, fields); c != nil {
			cmp = d.compressorFor(c)
			d.renderKnownHeader(contentEncoding, c.Token())
		}
	}

	if size > 0 {
		d.renderHeaders(fields)
		d.renderContentLength(int64(size))
	} else {
		fields.TransferEncoding = "chunked"
		d.renderHeaders(fields)
	}

	d.crlf()

	if err = writer.Write(d.buff); err != nil {
		return status.ErrCloseConnection
	}

	if request.Method == method.HEAD {
		// HEAD responses mirror GET ones, except the body is forcibly absent
		return nil
	}

	if len(d.fileBuff) == 0 {
		d.fileBuff = make([]byte, d.fileBuffSize)
	}

	switch {
	case size > 0:
		return d.writePlainBody(fields.Attachment.Content(), writer)
	case cmp != nil:
		return d.writeCompressedBody(cmp, fields.Attachment.Content(), writer)
	default:
		return d.writeChunkedBody(fields.Attachment.Content(), writer)
	}
}

func (d *Serializer) writePlainBody(r io.Reader, writer transport.Writer) error {
	for {
		n, err := r.Read(d.fileBuff)

		if n > 0 {
			if werr := writer.Write(d.fileBuff[:n]); werr != nil {
				return status.ErrCloseConnection
			}
		}

		switch err {
		case nil:
		case io.EOF:
			return nil
		default:
			return status.ErrCloseConnection
		}
	}
}

func (d *Serializer) writeChunkedBody(r io.Reader, writer transport.Writer) error {
	const (
		hexValueOffset = 8
		crlfSize       = 1 /* CR */ + 1 /* LF */
		buffOffset     = hexValueOffset + crlfSize
	)

	for {
		n, err := r.Read(d.fileBuff[buffOffset : len(d.fileBuff)-crlfSize])

		if n > 0 {
			// the begin of the fileBuff is reserved for the hexadecimal chunk
			// length, right-aligned and prepended to the chunk in a single write
			buff := strconv.AppendUint(d.fileBuff[:0], uint64(n), 16)
			blankSpace := hexValueOffset - len(buff)
			copy(d.fileBuff[blankSpace:], buff)
			copy(d.fileBuff[hexValueOffset:], httpchars.CRLF)
			copy(d.fileBuff[buffOffset+n:], httpchars.CRLF)

			if werr := writer.Write(d.fileBuff[blankSpace : buffOffset+n+crlfSize]); werr != nil {
				return status.ErrCloseConnection
			}
		}

		switch err {
		case nil:
		case io.EOF:
			return writer.Write(chunkedFinalizer)
		default:
			return status.ErrCloseConnection
		}
	}
}

// writeCompressedBody pumps the reader through the compressor, which in turn
// emits compressed segments as separate chunks of the chunked body.
func (d *Serializer) writeCompressedBody(cmp codec.Compressor, r io.Reader, writer transport.Writer) error {
	d.chunked.writer = writer
	cmp.Reset(&d.chunked)

	for {
		n, err := r.Read(d.fileBuff)

		if n > 0 {
			if _, werr := cmp.Write(d.fileBuff[:n]); werr != nil {
				return status.ErrCloseConnection
			}
		}

		switch err {
		case nil:
		case io.EOF:
			if cerr := cmp.Close(); cerr != nil {
				return status.ErrCloseConnection
			}

			return writer.Write(chunkedFinalizer)
		default:
			return status.ErrCloseConnection
		}
	}
}

// negotiate picks a codec the client accepts, provided compression is enabled
// and the content type is worth compressing.
func (d *Serializer) negotiate(request *http.Request, fields *http.Fields) codec.Codec {
	if !d.compression.Enabled || d.codecs.Empty() || request.Method == method.HEAD {
		return nil
	}

	if !compressible(fields.ContentType) {
		return nil
	}

	return d.codecs.Select(request.Encoding.Accept)
}

// compress squeezes the whole buffered body at once, so the Content-Length
// of the compressed entity stays known upfront.
func (d *Serializer) compress(c codec.Codec, body []byte) ([]byte, error) {
	cmp := d.compressorFor(c)
	d.compressBuff.Reset()
	cmp.Reset(&d.compressBuff)

	if _, err := cmp.Write(body); err != nil {
		return nil, err
	}

	if err := cmp.Close(); err != nil {
		return nil, err
	}

	return d.compressBuff.Bytes(), nil
}

// compressorFor lazily instantiates per-connection compressors, one for each
// coding actually used on the connection.
func (d *Serializer) compressorFor(c codec.Codec) codec.Compressor {
	if d.compressors == nil {
		d.compressors = make(map[string]codec.Compressor)
	}

	cmp, found := d.compressors[c.Token()]
	if !found {
		cmp = c.NewCompressor()
		d.compressors[c.Token()] = cmp
	}

	return cmp
}

func (d *Serializer) renderResponseLine(protocol proto.Proto, fields *http.Fields) {
	token := protocol.String()
	if len(token) == 0 {
		// error replies to requests whose version never parsed still must
		// carry a complete status line
		token = proto.HTTP11.String()
	}

	d.buff = append(d.buff, token...)
	d.buff = strconv.AppendInt(d.buff, int64(fields.Code), 10)
	d.sp()

	text := fields.Status
	if text == "" {
		text = status.Text(fields.Code)
	}

	d.buff = append(d.buff, text...)
	d.crlf()
}

func (d *Serializer) renderHeaders(fields *http.Fields) {
	for _, header := range fields.Headers {
		d.renderHeader(header)
		d.defaultHeaders.Exclude(header.Key)
	}

	for _, header := range d.defaultHeaders {
		if header.Excluded {
			continue
		}

		d.buff = append(d.buff, header.Full...)
	}

	// Content-Type is compulsory. Transfer-Encoding is not
	d.renderKnownHeader(contentType, fields.ContentType)
	if len(fields.TransferEncoding) > 0 {
		d.renderKnownHeader(transferEncoding, fields.TransferEncoding)
	}
}

// renderHeader renders the pair into the buffer, appending CRLF in the end.
func (d *Serializer) renderHeader(header http.Header) {
	d.buff = append(d.buff, header.Key...)
	d.colonsp()
	d.buff = append(d.buff, header.Value...)
	d.crlf()
}

func (d *Serializer) renderContentLength(value int64) {
	d.buff = strconv.AppendInt(append(d.buff, contentLength...), value, 10)
	d.crlf()
}

func (d *Serializer) renderKnownHeader(key, value string) {
	d.buff = append(d.buff, key...)
	d.buff = append(d.buff, value...)
	d.crlf()
}

func (d *Serializer) sp() {
	d.buff = append(d.buff, ' ')
}

func (d *Serializer) colonsp() {
	d.buff = append(d.buff, httpchars.COLONSP...)
}

func (d *Serializer) crlf() {
	d.buff = append(d.buff, httpchars.CRLF...)
}

func (d *Serializer) clear() {
	d.buff = d.buff[:0]
	d.defaultHeaders.Reset()
}

// isKeepAlive tells whether the connection may be re-used for the next
// request: HTTP/1.1 is persistent unless explicitly closed, HTTP/1.0 only
// when explicitly kept alive.
func isKeepAlive(protocol proto.Proto, req *http.Request) bool {
	switch protocol {
	case proto.HTTP10:
		return strcomp.EqualFold(req.Connection, "keep-alive")
	case proto.HTTP11:
		return !strcomp.EqualFold(req.Connection, "close")
	default:
		return false
	}
}

// compressible reports whether a content type is worth compressing. Binary
// formats are mostly compressed already; texts and text-like applications
// are not.
func compressible(m mime.MIME) bool {
	if strings.HasPrefix(m, "text/") {
		return true
	}

	switch m {
	case mime.JSON, mime.XML, mime.YAML, mime.SVG, mime.WASM, mime.JS:
		return true
	default:
		return false
	}
}

// chunkWriter wraps every incoming Write into a hex-length-prefixed chunk of
// a chunked response body.
type chunkWriter struct {
	writer  transport.Writer
	hexBuff []byte
}

func (c *chunkWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}

	c.hexBuff = strconv.AppendUint(c.hexBuff[:0], uint64(len(p)), 16)
	c.hexBuff = append(c.hexBuff, httpchars.CRLF...)

	if err = c.writer.Write(c.hexBuff); err != nil {
		return 0, err
	}

	if err = c.writer.Write(p); err != nil {
		return 0, err
	}

	return len(p), c.writer.Write(httpchars.CRLF)
}

func processDefaultHeaders(hdrs map[string]string) defaultHeaders {
	processed := make(defaultHeaders, 0, len(hdrs))

	for key, value := range hdrs {
		full := renderHeader(key, value)
		processed = append(processed, defaultHeader{
			// only the rendered line is kept; the map values may be released
			Key:  full[:len(key)],
			Full: full,
		})
	}

	return processed
}

func renderHeader(key, value string) string {
	return key + httpchars.COLONSP + value + uf.B2S(httpchars.CRLF)
}

type defaultHeader struct {
	Excluded bool
	Key      string
	Full     string
}

type defaultHeaders []defaultHeader

func (d defaultHeaders) Exclude(key string) {
	for i, header := range d {
		if strcomp.EqualFold(header.Key, key) {
			d[i].Excluded = true
			return
		}
	}
}

func (d defaultHeaders) Reset() {
	for i := range d {
		d[i].Excluded = false
	}
}
