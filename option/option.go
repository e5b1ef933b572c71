// Package option configures clients and individual requests.
//
// Options passed to [orb.NewClient] apply to every request that client makes.
// Options passed to a single method call are applied after them, so a per-call
// option overrides a client-level one.
package option

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/broady/orb/internal/requestconfig"
)

// RequestOption changes how a request is built or sent.
type RequestOption = requestconfig.RequestOption

// Middleware wraps the round trip of a request. See [requestconfig.Middleware].
type Middleware = requestconfig.Middleware

// MiddlewareNext calls the next middleware in the chain.
type MiddlewareNext = requestconfig.MiddlewareNext

// Environment variables read by [DefaultClientOptions].
const (
	EnvAPIKey            = "ORB_API_KEY"
	EnvBaseURL           = "ORB_BASE_URL"
	EnvValidateResponses = "ORB_VALIDATE_RESPONSES"
	EnvValidateParams    = "ORB_VALIDATE_PARAMS"
)

// DefaultClientOptions returns options derived from the environment.
func DefaultClientOptions() []RequestOption {
	var opts []RequestOption
	if v, ok := os.LookupEnv(EnvBaseURL); ok && v != "" {
		opts = append(opts, WithBaseURL(v))
	}
	if v, ok := os.LookupEnv(EnvAPIKey); ok && v != "" {
		opts = append(opts, WithAPIKey(v))
	}
	if v, ok := os.LookupEnv(EnvValidateResponses); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			opts = append(opts, WithResponseValidation(b))
		}
	}
	if v, ok := os.LookupEnv(EnvValidateParams); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			opts = append(opts, WithParamsValidation(b))
		}
	}
	return opts
}

// WithAPIKey sets the bearer token sent in the Authorization header.
func WithAPIKey(key string) RequestOption {
	return func(r *requestconfig.RequestConfig) error {
		r.APIKey = key
		r.Request.Header.Set("Authorization", "Bearer "+key)
		return nil
	}
}

// WithBaseURL points requests at another server, such as a mock in tests.
func WithBaseURL(base string) RequestOption {
	u, err := url.Parse(base)
	if err == nil && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return func(r *requestconfig.RequestConfig) error {
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", base, err)
		}
		r.BaseURL = u
		return nil
	}
}

// WithHTTPClient sends requests through client instead of http.DefaultClient.
func WithHTTPClient(client *http.Client) RequestOption {
	return func(r *requestconfig.RequestConfig) error {
		r.HTTPClient = client
		return nil
	}
}

// WithHeader sets a header, replacing any existing values.
func WithHeader(key, value string) RequestOption {
	return func(r *requestconfig.RequestConfig) error {
		r.Request.Header.Set(key, value)
		return nil
	}
}

// WithHeaderAdd appends a value to a header.
func WithHeaderAdd(key, value string) RequestOption {
	return func(r *requestconfig.RequestConfig) error {
		r.Request.Header.Add(key, value)
		return nil
	}
}

// WithHeaderDel removes a header, including a default one.
func WithHeaderDel(key string) RequestOption {
	return func(r *requestconfig.RequestConfig) error {
		r.Request.Header.Del(key)
		return nil
	}
}

// WithQuery sets a query parameter, replacing any value from the params.
func WithQuery(key, value string) RequestOption {
	return func(r *requestconfig.RequestConfig) error {
		q := r.Request.URL.Query()
		q.Set(key, value)
		r.Request.URL.RawQuery = q.Encode()
		return nil
	}
}

// WithUserAgent replaces the default User-Agent.
func WithUserAgent(ua string) RequestOption {
	return WithHeader("User-Agent", ua)
}

// WithIdempotencyKey sets the Idempotency-Key header, so that the server
// applies a retried POST at most once.
func WithIdempotencyKey(key string) RequestOption {
	return WithHeader("Idempotency-Key", key)
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) RequestOption {
	return func(r *requestconfig.RequestConfig) error {
		r.Logger = logger
		return nil
	}
}

// WithMiddleware appends middlewares. Middlewares run in the order they are
// added, the first being the outer-most.
func WithMiddleware(middlewares ...Middleware) RequestOption {
	return func(r *requestconfig.RequestConfig) error {
		r.Middlewares = append(r.Middlewares, middlewares...)
		return nil
	}
}

// WithParamsValidation turns local checking of `validate:"..."` rules on
// params on or off. Off by default: values such as an out-of-range limit or an
// unknown status filter are sent as given and the API rejects them. Required
// fields are checked either way.
func WithParamsValidation(enabled bool) RequestOption {
	return func(r *requestconfig.RequestConfig) error {
		r.ValidateParams = enabled
		return nil
	}
}

// WithResponseValidation turns strict validation of decoded responses on or
// off. When on, a response missing a required field or carrying an unknown
// enum value fails with *orb.ValidationError.
func WithResponseValidation(enabled bool) RequestOption {
	return func(r *requestconfig.RequestConfig) error {
		r.ValidateResponses = enabled
		return nil
	}
}
