// Package apierror defines the error returned for non-2xx API responses.
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Kind classifies an API error by the HTTP status the server returned.
type Kind string

const (
	KindBadRequest          Kind = "bad_request"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindNotFound            Kind = "not_found"
	KindUnprocessableEntity Kind = "unprocessable_entity"
	KindRateLimit           Kind = "rate_limit"
	KindClientError         Kind = "client_error" // any other 4xx
	KindServerError         Kind = "server_error" // any 5xx
	KindUnexpectedStatus    Kind = "unexpected_status"
)

// Sentinels for use with errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrUnprocessableEntity = errors.New("unprocessable entity")
	ErrRateLimit           = errors.New("rate limited")
	ErrClientError         = errors.New("client error")
	ErrServerError         = errors.New("server error")
	ErrUnexpectedStatus    = errors.New("unexpected status code")
)

// ErrConnection wraps failures to reach the server or read its response.
var ErrConnection = errors.New("connection error")

// KindFromStatus maps an HTTP status code to its error Kind.
func KindFromStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnprocessableEntity:
		return KindUnprocessableEntity
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 400 && status < 500:
		return KindClientError
	case status >= 500 && status < 600:
		return KindServerError
	default:
		return KindUnexpectedStatus
	}
}

// Sentinel returns the errors.Is target for the kind.
func (k Kind) Sentinel() error {
	switch k {
	case KindBadRequest:
		return ErrBadRequest
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindUnprocessableEntity:
		return ErrUnprocessableEntity
	case KindRateLimit:
		return ErrRateLimit
	case KindClientError:
		return ErrClientError
	case KindServerError:
		return ErrServerError
	default:
		return ErrUnexpectedStatus
	}
}

// Error is returned when the API responds with a non-2xx status.
// Body holds the response body exactly as received.
type Error struct {
	Kind       Kind
	StatusCode int
	Body       string

	Request  *http.Request
	Response *http.Response
}

// New builds an Error for the given response. The body must already have been read.
func New(req *http.Request, res *http.Response, body []byte) *Error {
	return &Error{
		Kind:       KindFromStatus(res.StatusCode),
		StatusCode: res.StatusCode,
		Body:       string(body),
		Request:    req,
		Response:   res,
	}
}

func (e *Error) Error() string {
	if e.Request != nil {
		return fmt.Sprintf("%s %q: %d %s %s", e.Request.Method, e.Request.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
	}
	return fmt.Sprintf("%d %s %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.Sentinel()
}

// Type returns the problem type URI from the error body, if there is one.
func (e *Error) Type() string { return gjson.Get(e.Body, "type").String() }

// Title returns the short error summary from the error body, if there is one.
func (e *Error) Title() string { return gjson.Get(e.Body, "title").String() }

// Detail returns the error explanation from the error body, if there is one.
func (e *Error) Detail() string { return gjson.Get(e.Body, "detail").String() }
