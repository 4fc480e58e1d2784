package http1

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/method"
	"github.com/ember-web/ember/http/proto"
	"github.com/ember-web/ember/http/status"
	"github.com/ember-web/ember/internal/transport"
	"github.com/indigo-web/utils/buffer"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

type parserState uint8

const (
	eMethod parserState = iota + 1
	ePath
	eHeaderKey
	eContentLength
	eContentLengthCR
	eHeaderValue
	eHeaderValueCRLFCR
)

// Parser is a streaming HTTP/1.x request parser. It consumes chunks of
// arbitrary sizes, fills the bound request object by pointer and reports
// whether the head of the request is complete. Bytes which arrived past the
// head are handed back as extra: they belong to the body or to the next
// pipelined request. The parser is resumable at any byte boundary and never
// backtracks.
type Parser struct {
	request          *http.Request
	startLineBuff    *buffer.Buffer
	headerKeyBuff    *buffer.Buffer
	headerValueBuff  *buffer.Buffer
	transferEncBuff  []string
	contentEncBuff   []string
	acceptEncBuff    []string
	headerKey        string
	cfg              *config.Headers
	headersNumber    int
	contentLength    int
	hasContentLength bool
	clDigitSeen      bool
	state            parserState
}

func NewParser(
	request *http.Request, keyBuff, valBuff, startLineBuff *buffer.Buffer, cfg config.Headers,
) *Parser {
	return &Parser{
		state:           eMethod,
		request:         request,
		cfg:             &cfg,
		startLineBuff:   startLineBuff,
		headerKeyBuff:   keyBuff,
		headerValueBuff: valBuff,
		transferEncBuff: make([]string, 0, cfg.MaxEncodingTokens),
		contentEncBuff:  make([]string, 0, cfg.MaxEncodingTokens),
		acceptEncBuff:   make([]string, 0, cfg.MaxEncodingTokens),
	}
}

func (p *Parser) Parse(data []byte) (state transport.RequestState, extra []byte, err error) {
	request := p.request
	headerKeyBuff := p.headerKeyBuff
	headerValueBuff := p.headerValueBuff

	switch p.state {
	case eMethod:
		goto method
	case ePath:
		goto path
	case eHeaderKey:
		goto headerKey
	case eContentLength:
		goto contentLength
	case eContentLengthCR:
		goto contentLengthCR
	case eHeaderValue:
		goto headerValue
	case eHeaderValueCRLFCR:
		goto headerValueCRLFCR
	default:
		panic(fmt.Sprintf("BUG: request parser: unexpected state: %v", p.state))
	}

method:
	{
		sp := bytes.IndexByte(data, ' ')
		if sp == -1 {
			if !p.startLineBuff.Append(data) {
				return transport.Error, nil, status.ErrTooLongRequestLine
			}

			return transport.Pending, nil, nil
		}

		var methodValue []byte
		if p.startLineBuff.SegmentLength() == 0 {
			methodValue = data[:sp]
		} else {
			if !p.startLineBuff.Append(data[:sp]) {
				return transport.Error, nil, status.ErrTooLongRequestLine
			}

			methodValue = p.startLineBuff.Finish()
		}

		if len(methodValue) == 0 {
			return transport.Error, nil, status.ErrMalformedRequest
		}

		request.Method = method.Parse(uf.B2S(methodValue))
		if request.Method == method.Unknown {
			return transport.Error, nil, status.ErrMethodNotImplemented
		}

		data = data[sp+1:]
		p.state = ePath
		goto path
	}

path:
	{
		lf := bytes.IndexByte(data, '\n')
		if lf == -1 {
			if !p.startLineBuff.Append(data) {
				return transport.Error, nil, status.ErrURITooLong
			}

			return transport.Pending, nil, nil
		}

		if !p.startLineBuff.Append(data[:lf]) {
			return transport.Error, nil, status.ErrURITooLong
		}

		pathAndProto := p.startLineBuff.Finish()
		sp := bytes.LastIndexByte(pathAndProto, ' ')
		if sp == -1 {
			return transport.Error, nil, status.ErrMalformedRequest
		}

		reqPath, reqProto := pathAndProto[:sp], pathAndProto[sp+1:]
		if len(reqProto) > 0 && reqProto[len(reqProto)-1] == '\r' {
			reqProto = reqProto[:len(reqProto)-1]
		}

		if query := bytes.IndexByte(reqPath, '?'); query != -1 {
			request.Query = uf.B2S(reqPath[query+1:])
			reqPath = reqPath[:query]
		}

		if len(reqPath) == 0 || !validPathBytes(reqPath) {
			return transport.Error, nil, status.ErrMalformedRequest
		}

		request.Path = uf.B2S(reqPath)
		request.Proto = proto.FromBytes(reqProto)
		if request.Proto == proto.Unknown {
			return transport.Error, nil, status.ErrUnsupportedProtocol
		}

		data = data[lf+1:]
		p.state = eHeaderKey
		goto headerKey
	}

headerKey:
	{
		if len(data) == 0 {
			return transport.Pending, nil, nil
		}

		switch data[0] {
		case '\n', '\r':
			if headerKeyBuff.SegmentLength() != 0 {
				// a line break right after a partially arrived key
				return transport.Error, nil, status.ErrMalformedRequest
			}

			if data[0] == '\n' {
				return p.complete(data[1:])
			}

			data = data[1:]
			p.state = eHeaderValueCRLFCR
			goto headerValueCRLFCR
		}

		colon := bytes.IndexByte(data, ':')
		if lf := bytes.IndexByte(data, '\n'); lf != -1 && (colon == -1 || lf < colon) {
			// a field line ended before any colon was met
			return transport.Error, nil, status.ErrMalformedRequest
		}

		if colon == -1 {
			if !headerKeyBuff.Append(data) {
				return transport.Error, nil, status.ErrHeaderFieldsTooLarge
			}

			return transport.Pending, nil, nil
		}

		if !headerKeyBuff.Append(data[:colon]) {
			return transport.Error, nil, status.ErrHeaderFieldsTooLarge
		}

		p.headerKey = uf.B2S(headerKeyBuff.Finish())
		data = data[colon+1:]

		if len(p.headerKey) == 0 || len(p.headerKey) > p.cfg.MaxKeyLength {
			return transport.Error, nil, status.ErrMalformedRequest
		}

		if p.headersNumber++; p.headersNumber > p.cfg.Number.Maximal {
			return transport.Error, nil, status.ErrTooManyHeaders
		}

		if strcomp.EqualFold(p.headerKey, "content-length") {
			if p.hasContentLength {
				// a repeated Content-Length cannot be deduplicated safely
				return transport.Error, nil, status.ErrBadRequest
			}

			p.hasContentLength = true
			p.state = eContentLength
			goto contentLength
		}

		p.state = eHeaderValue
		goto headerValue
	}

contentLength:
	for i, char := range data {
		if char == ' ' {
			// leading whitespace only; a space amid digits splits the number
			if p.clDigitSeen {
				return transport.Error, nil, status.ErrMalformedRequest
			}

			continue
		}

		if char < '0' || char > '9' {
			data = data[i:]
			goto contentLengthEnd
		}

		if p.contentLength > (math.MaxInt-9)/10 {
			return transport.Error, nil, status.ErrMalformedRequest
		}

		p.clDigitSeen = true
		p.contentLength = p.contentLength*10 + int(char-'0')
	}

	return transport.Pending, nil, nil

contentLengthEnd:
	// data is guaranteed to contain at least one byte here: this label is
	// reachable only when the loop above met a non-digit character
	request.ContentLength = p.contentLength

	switch data[0] {
	case '\r':
		data = data[1:]
		p.state = eContentLengthCR
		goto contentLengthCR
	case '\n':
		data = data[1:]
		p.state = eHeaderKey
		goto headerKey
	default:
		return transport.Error, nil, status.ErrMalformedRequest
	}

contentLengthCR:
	if len(data) == 0 {
		return transport.Pending, nil, nil
	}

	if data[0] != '\n' {
		return transport.Error, nil, status.ErrMalformedRequest
	}

	data = data[1:]
	p.state = eHeaderKey
	goto headerKey

headerValue:
	{
		lf := bytes.IndexByte(data, '\n')
		if lf == -1 {
			if !headerValueBuff.Append(data) {
				return transport.Error, nil, status.ErrHeaderFieldsTooLarge
			}

			if headerValueBuff.SegmentLength() > p.cfg.MaxValueLength {
				return transport.Error, nil, status.ErrHeaderFieldsTooLarge
			}

			return transport.Pending, nil, nil
		}

		if !headerValueBuff.Append(data[:lf]) {
			return transport.Error, nil, status.ErrHeaderFieldsTooLarge
		}

		if headerValueBuff.SegmentLength() > p.cfg.MaxValueLength {
			return transport.Error, nil, status.ErrHeaderFieldsTooLarge
		}

		data = data[lf+1:]
		value := uf.B2S(trimPrefixSpaces(headerValueBuff.Finish()))
		if len(value) > 0 && value[len(value)-1] == '\r' {
			value = value[:len(value)-1]
		}

		request.Headers.Add(p.headerKey, value)
		p.interestingHeader(p.headerKey, value)

		p.state = eHeaderKey
		goto headerKey
	}

headerValueCRLFCR:
	if len(data) == 0 {
		return transport.Pending, nil, nil
	}

	if data[0] == '\n' {
		return p.complete(data[1:])
	}

	return transport.Error, nil, status.ErrMalformedRequest
}

// interestingHeader extracts the values the connection driver and the
// serializer make framing and lifecycle decisions on. The keys are matched
// case-insensitively; Content-Length is handled by a dedicated parser state
// instead.
func (p *Parser) interestingHeader(key, value string) {
	request := p.request

	switch len(key) {
	case len("expect"):
		if strcomp.EqualFold(key, "expect") {
			request.Expect = value
		}
	case len("trailer"):
		if strcomp.EqualFold(key, "trailer") {
			request.Encoding.HasTrailer = true
		}
	case len("connection"):
		if strcomp.EqualFold(key, "connection") {
			request.Connection = value
		}
	case len("content-type"):
		if strcomp.EqualFold(key, "content-type") {
			request.ContentType = value
		}
	case len("accept-encoding"):
		if strcomp.EqualFold(key, "accept-encoding") {
			request.Encoding.Accept, _ = parseEncodingString(p.acceptEncBuff, value)
		}
	case len("content-encoding"):
		if strcomp.EqualFold(key, "content-encoding") {
			request.Encoding.Content, _ = parseEncodingString(p.contentEncBuff, value)
		}
	case len("transfer-encoding"):
		if strcomp.EqualFold(key, "transfer-encoding") {
			request.Encoding.Transfer, request.Encoding.Chunked = parseEncodingString(p.transferEncBuff, value)
		}
	}
}

// complete finishes the head of the request, rejecting requests whose framing
// is ambiguous: a message declaring both Content-Length and chunked
// transfer-encoding is a protocol violation, not a best-effort guess.
func (p *Parser) complete(extra []byte) (transport.RequestState, []byte, error) {
	defer p.reset()

	if p.request.Encoding.Chunked && p.hasContentLength {
		return transport.Error, nil, status.ErrAmbiguousFraming
	}

	return transport.HeadersCompleted, extra, nil
}

func (p *Parser) reset() {
	p.headersNumber = 0
	p.contentLength = 0
	p.hasContentLength = false
	p.clDigitSeen = false
	p.startLineBuff.Clear()
	p.headerKeyBuff.Clear()
	p.headerValueBuff.Clear()
	p.transferEncBuff = p.transferEncBuff[:0]
	p.contentEncBuff = p.contentEncBuff[:0]
	p.acceptEncBuff = p.acceptEncBuff[:0]
	p.state = eMethod
}

// parseEncodingString splits a comma-separated list of coding tokens,
// reporting whether chunked was among them. Nil is returned when the tokens
// don't fit the buffer, which the caller treats as no codings at all.
func parseEncodingString(buff []string, value string) (toks []string, chunked bool) {
	maxTokens := cap(buff)

	for len(value) > 0 {
		var token string
		comma := strings.IndexByte(value, ',')
		if comma == -1 {
			token, value = value, ""
		} else {
			token, value = value[:comma], value[comma+1:]
		}

		token = strings.TrimSpace(token)
		if len(token) == 0 {
			continue
		}

		if len(buff)+1 > maxTokens {
			return nil, false
		}

		if strcomp.EqualFold(token, "chunked") {
			chunked = true
		}

		buff = append(buff, token)
	}

	return buff, chunked
}

func trimPrefixSpaces(b []byte) []byte {
	for i, char := range b {
		if char != ' ' {
			return b[i:]
		}
	}

	return b[:0]
}

// validPathBytes rejects control characters in the request target. The path
// is otherwise left as-is, percent-encoding included.
func validPathBytes(path []byte) bool {
	for _, char := range path {
		if char < 0x21 || char == 0x7f {
			return false
		}
	}

	return true
}
