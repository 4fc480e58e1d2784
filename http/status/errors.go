package status

// HTTPError is an error carrying the status code it must be answered with.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

// control-flow sentinels. They never reach the wire; the connection driver
// interprets them instead.
var (
	ErrCloseConnection  = NewError(CloseConnection, "actively closing the connection")
	ErrShutdown         = NewError(CloseConnection, "graceful shutdown")
	ErrGracefulShutdown = NewError(CloseConnection, "pausing the listener")
)

var (
	ErrBadRequest                    = NewError(BadRequest, "bad request")
	ErrMalformedRequest              = NewError(BadRequest, "malformed request")
	ErrTooLongRequestLine            = NewError(BadRequest, "request line is too long")
	ErrBadChunk                      = NewError(BadRequest, "malformed chunk-encoded data")
	ErrAmbiguousFraming              = NewError(BadRequest, "both content-length and chunked transfer-encoding are set")
	ErrNotFound                      = NewError(NotFound, "not found")
	ErrInternalServerError           = NewError(InternalServerError, "internal server error")
	ErrInvalidHeaderValue            = NewError(InternalServerError, "response header value contains control characters")
	ErrNotImplemented                = NewError(NotImplemented, "not implemented")
	ErrMethodNotImplemented          = NewError(NotImplemented, "request method is not supported")
	ErrMethodNotAllowed              = NewError(MethodNotAllowed, "method not allowed")
	ErrBodyTooLarge                  = NewError(PayloadTooLarge, "request body is too large")
	ErrHeaderFieldsTooLarge          = NewError(HeaderFieldsTooLarge, "too large headers section")
	ErrTooManyHeaders                = NewError(HeaderFieldsTooLarge, "too many headers")
	ErrURITooLong                    = NewError(RequestURITooLong, "request URI too long")
	ErrUnsupportedProtocol           = NewError(HTTPVersionNotSupported, "protocol is not supported")
	ErrUnauthorized                  = NewError(Unauthorized, "unauthorized")
	ErrForbidden                     = NewError(Forbidden, "forbidden")
	ErrNotAcceptable                 = NewError(NotAcceptable, "not acceptable")
	ErrRequestTimeout                = NewError(RequestTimeout, "request timeout")
	ErrConflict                      = NewError(Conflict, "conflict")
	ErrGone                          = NewError(Gone, "gone")
	ErrLengthRequired                = NewError(LengthRequired, "length required")
	ErrPreconditionFailed            = NewError(PreconditionFailed, "precondition failed")
	ErrUnsupportedMediaType          = NewError(UnsupportedMediaType, "unsupported media type")
	ErrUnsupportedEncoding           = NewError(UnsupportedMediaType, "encoding is not supported")
	ErrExpectationFailed             = NewError(ExpectationFailed, "expectations are not supported")
	ErrTeapot                        = NewError(Teapot, "i'm a teapot")
	ErrUnprocessableEntity           = NewError(UnprocessableEntity, "unprocessable entity")
	ErrUpgradeRequired               = NewError(UpgradeRequired, "upgrade required")
	ErrTooManyRequests               = NewError(TooManyRequests, "too many requests")
	ErrBadGateway                    = NewError(BadGateway, "bad gateway")
	ErrServiceUnavailable            = NewError(ServiceUnavailable, "service unavailable")
	ErrGatewayTimeout                = NewError(GatewayTimeout, "gateway timeout")
	ErrNetworkAuthenticationRequired = NewError(NetworkAuthenticationRequired, "network authentication required")
)

// CloseConnection is a pseudo-code used by control-flow sentinels only. It is
// never rendered into a response line.
const CloseConnection Code = 0
