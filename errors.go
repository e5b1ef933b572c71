package orb

import (
	"errors"

	"github.com/broady/orb/internal/apierror"
	"github.com/broady/orb/internal/apijson"
)

// Error is returned for any non-2xx response. Body holds the response body
// exactly as the server sent it.
//
//	var apiErr *orb.Error
//	if errors.As(err, &apiErr) {
//	    log.Printf("status %d: %s", apiErr.StatusCode, apiErr.Body)
//	}
//
// Match a specific status class with errors.Is:
//
//	if errors.Is(err, orb.ErrNotFound) { ... }
type Error = apierror.Error

// ErrorKind classifies an [Error] by status code.
type ErrorKind = apierror.Kind

const (
	KindBadRequest          = apierror.KindBadRequest          // 400
	KindUnauthorized        = apierror.KindUnauthorized        // 401
	KindForbidden           = apierror.KindForbidden           // 403
	KindNotFound            = apierror.KindNotFound            // 404
	KindUnprocessableEntity = apierror.KindUnprocessableEntity // 422
	KindRateLimit           = apierror.KindRateLimit           // 429
	KindClientError         = apierror.KindClientError         // other 4xx
	KindServerError         = apierror.KindServerError         // 5xx
	KindUnexpectedStatus    = apierror.KindUnexpectedStatus    // anything else
)

var (
	ErrBadRequest          = apierror.ErrBadRequest
	ErrUnauthorized        = apierror.ErrUnauthorized
	ErrForbidden           = apierror.ErrForbidden
	ErrNotFound            = apierror.ErrNotFound
	ErrUnprocessableEntity = apierror.ErrUnprocessableEntity
	ErrRateLimit           = apierror.ErrRateLimit
	ErrClientError         = apierror.ErrClientError
	ErrServerError         = apierror.ErrServerError
	ErrUnexpectedStatus    = apierror.ErrUnexpectedStatus

	// ErrConnection wraps transport failures. Requests are never retried.
	ErrConnection = apierror.ErrConnection
)

// ErrNoNextPage is returned by [Page.Next] when there is no further page.
var ErrNoNextPage = errors.New("no next page")

// DecodeError reports a response that is valid JSON but does not fit the
// expected model, such as a union with an unmatched discriminator.
type DecodeError = apijson.DecodeError

// ValidationError lists every problem found by response validation, or by
// the checks run on params before a request is sent.
type ValidationError = apijson.ValidationError

// ValidationProblem is one entry of a [ValidationError].
type ValidationProblem = apijson.Problem

// KindFromStatus returns the [ErrorKind] for an HTTP status code.
func KindFromStatus(status int) ErrorKind {
	return apierror.KindFromStatus(status)
}
