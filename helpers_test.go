package orb

import (
	"testing"

	"github.com/broady/orb/option"
	"github.com/broady/orb/testutil"
)

// newTestClient returns a client pointed at a fresh mock server.
func newTestClient(t *testing.T, opts ...option.RequestOption) (*Client, *testutil.Server) {
	t.Helper()
	t.Setenv("ORB_API_KEY", "")
	t.Setenv("ORB_BASE_URL", "")
	t.Setenv("ORB_VALIDATE_RESPONSES", "")
	t.Setenv("ORB_VALIDATE_PARAMS", "")
	s := testutil.NewServer(t)
	opts = append([]option.RequestOption{
		option.WithBaseURL(s.BaseURL()),
		option.WithAPIKey("test-key"),
	}, opts...)
	return NewClient(opts...), s
}

// newStrictTestClient is newTestClient with params validation turned on.
func newStrictTestClient(t *testing.T) (*Client, *testutil.Server) {
	t.Helper()
	return newTestClient(t, option.WithParamsValidation(true))
}

const emptyPage = `{"data":[],"pagination_metadata":{"has_more":false,"next_cursor":null}}`
