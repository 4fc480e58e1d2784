package http

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ember-web/ember/http/mime"
	"github.com/ember-web/ember/http/status"
	"github.com/ember-web/ember/kv"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

// why 7? I don't know. There's no theory behind this number nor researches.
const preallocRespHeaders = 7

// Fields is the revealed state of the response builder. The serializer is the
// only intended consumer; handlers use the builder methods instead.
type Fields struct {
	Attachment       Attachment
	Status           status.Status
	ContentType      mime.MIME
	TransferEncoding string
	Headers          []kv.Pair
	Body             []byte
	Code             status.Code
}

func (f *Fields) Clear() {
	f.Code = status.OK
	f.Status = ""
	f.ContentType = mime.HTML
	f.TransferEncoding = ""
	f.Headers = f.Headers[:0]
	f.Body = nil
	f.Attachment = Attachment{}
}

// Response is a builder for a reply. Headers must not be touched once the
// serializer started emitting body bytes; the connection driver guarantees
// that by owning the write phase exclusively.
type Response struct {
	fields Fields
}

// NewResponse returns a new response builder with the status code set to
// 200 OK, pre-allocated header storage and text/html content type.
//
// NOTE: inside handlers, prefer Request.Respond() instead.
func NewResponse() *Response {
	return &Response{
		fields: Fields{
			Code:        status.OK,
			Headers:     make([]kv.Pair, 0, preallocRespHeaders),
			ContentType: mime.HTML,
		},
	}
}

// Code sets the response code. The status text is derived from it, unless
// Status is called explicitly.
func (r *Response) Code(code status.Code) *Response {
	r.fields.Code = code
	return r
}

// Status sets a custom status text. Clients generally ignore it; reach for
// this only when the peer is known to look at reason phrases.
func (r *Response) Status(status status.Status) *Response {
	r.fields.Status = status
	return r
}

// ContentType sets a custom Content-Type header value.
func (r *Response) ContentType(value mime.MIME) *Response {
	r.fields.ContentType = value
	return r
}

// TransferEncoding sets a custom Transfer-Encoding header value.
func (r *Response) TransferEncoding(value string) *Response {
	r.fields.TransferEncoding = value
	return r
}

// Header appends values to the key. Content-Type and Transfer-Encoding are
// redirected to their dedicated slots. Values containing control characters
// are rejected: the response degrades into status.ErrInvalidHeaderValue,
// because an unvalidated value would break the framing of the whole reply.
func (r *Response) Header(key string, values ...string) *Response {
	switch {
	case strcomp.EqualFold(key, "content-type"):
		return r.ContentType(values[0])
	case strcomp.EqualFold(key, "transfer-encoding"):
		return r.TransferEncoding(values[0])
	}

	for i := range values {
		if !validHeaderValue(values[i]) {
			return r.Error(status.ErrInvalidHeaderValue)
		}

		r.fields.Headers = append(r.fields.Headers, kv.Pair{
			Key:   key,
			Value: values[i],
		})
	}

	return r
}

// Headers merges the map into the response headers.
func (r *Response) Headers(headers map[string][]string) *Response {
	resp := r

	for k, v := range headers {
		resp = resp.Header(k, v...)
	}

	return resp
}

// String sets the response body to the passed string.
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// Bytes sets the response body to the passed slice WITHOUT COPYING. Changing
// the slice afterwards affects the response.
func (r *Response) Bytes(body []byte) *Response {
	r.fields.Body = body
	return r
}

// Write implements io.Writer. It always returns n=len(b) and err=nil.
func (r *Response) Write(b []byte) (n int, err error) {
	r.fields.Body = append(r.fields.Body, b...)
	return len(b), nil
}

// TryFile tries to open a file for reading and returns a response with the
// attachment set and the content type looked up by the file extension.
func (r *Response) TryFile(path string) (*Response, error) {
	fd, err := os.Open(path)
	if err != nil {
		return r, status.ErrNotFound
	}

	stat, err := fd.Stat()
	if err != nil {
		return r, status.ErrInternalServerError
	}
	if stat.IsDir() {
		return r, status.ErrNotFound
	}

	r.fields.ContentType = mime.ByExtension(filepath.Ext(path))

	return r.Attachment(fd, int(stat.Size())), nil
}

// File does the same as TryFile, except the error is implicitly passed to Error.
func (r *Response) File(path string) *Response {
	resp, err := r.TryFile(path)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// Attachment sets the response body to a stream. The buffered body, if any,
// is ignored. If size <= 0, the length is considered unknown and the body is
// framed via chunked transfer encoding.
func (r *Response) Attachment(reader io.Reader, size int) *Response {
	r.fields.Attachment = NewAttachment(reader, size)
	return r
}

// TryJSON renders the model into the response body and returns an error if
// the model cannot be serialized.
func (r *Response) TryJSON(model any) (*Response, error) {
	r.fields.Body = r.fields.Body[:0]
	stream := json.ConfigDefault.BorrowStream(r)
	stream.WriteVal(model)
	err := stream.Flush()
	json.ConfigDefault.ReturnStream(stream)

	return r.ContentType(mime.JSON), err
}

// JSON does the same as TryJSON, except the error is implicitly passed to Error.
func (r *Response) JSON(model any) *Response {
	resp, err := r.TryJSON(model)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// Error sets the code carried by the error, if it is a status.HTTPError, and
// the error text as the body. Any other error maps to 500 Internal Server
// Error, unless a custom code is passed. Nil error is a no-op.
func (r *Response) Error(err error, code ...status.Code) *Response {
	if err == nil {
		return r
	}

	if http, ok := err.(status.HTTPError); ok {
		return r.
			Code(http.Code).
			ContentType(mime.Plain).
			String(http.Message)
	}

	c := status.InternalServerError
	if len(code) > 0 {
		// peek the first, ignore the rest
		c = code[0]
	}

	return r.
		Code(c).
		ContentType(mime.Plain).
		String(err.Error())
}

// Reveal returns the response state as plain values. Used by the serializer.
func (r *Response) Reveal() *Fields {
	return &r.fields
}

// Clear discards everything done with the builder before.
func (r *Response) Clear() *Response {
	r.fields.Clear()
	return r
}

// Attachment is a body source of a possibly unknown size. Sizes above zero
// get Content-Length framing, everything else is sent chunked.
type Attachment struct {
	content io.Reader
	size    int
}

func NewAttachment(content io.Reader, size int) Attachment {
	return Attachment{
		content: content,
		size:    size,
	}
}

func (a Attachment) Content() io.Reader {
	return a.content
}

func (a Attachment) Size() int {
	return a.size
}

func (a Attachment) Close() {
	if closer, ok := a.content.(io.Closer); ok {
		_ = closer.Close()
	}
}

// Respond is a predicate to request.Respond(). May be used as a dummy handler.
func Respond(request *Request) *Response {
	return request.Respond()
}

// Code is a predicate to request.Respond().Code(...)
func Code(request *Request, code status.Code) *Response {
	return request.Respond().Code(code)
}

// String is a predicate to request.Respond().String(...)
func String(request *Request, str string) *Response {
	return request.Respond().String(str)
}

// Bytes is a predicate to request.Respond().Bytes(...)
func Bytes(request *Request, b []byte) *Response {
	return request.Respond().Bytes(b)
}

// File is a predicate to request.Respond().File(...)
func File(request *Request, path string) *Response {
	return request.Respond().File(path)
}

// JSON is a predicate to request.Respond().JSON(...)
func JSON(request *Request, model any) *Response {
	return request.Respond().JSON(model)
}

// Error is a predicate to request.Respond().Error(...)
func Error(request *Request, err error, code ...status.Code) *Response {
	return request.Respond().Error(err, code...)
}

func validHeaderValue(value string) bool {
	for i := 0; i < len(value); i++ {
		// HTAB is the only control character allowed in field content
		if value[i] < 0x20 && value[i] != '\t' || value[i] == 0x7f {
			return false
		}
	}

	return true
}
