package orb

import (
	"context"
	"net/http"
	"slices"

	"github.com/broady/orb/internal/apijson"
	"github.com/broady/orb/internal/requestconfig"
	"github.com/broady/orb/option"
)

// TopLevelService holds endpoints that belong to no resource.
type TopLevelService struct {
	Options []option.RequestOption
}

func NewTopLevelService(opts ...option.RequestOption) (r TopLevelService) {
	r = TopLevelService{}
	r.Options = opts
	return
}

// Ping checks that the API is reachable and the API key is accepted.
func (r *TopLevelService) Ping(ctx context.Context, opts ...option.RequestOption) (res *TopLevelPingResponse, err error) {
	opts = slices.Concat(r.Options, opts)
	path := "ping"
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...)
	return
}

type TopLevelPingResponse struct {
	Response string         `json:"response,required"`
	JSON     apijson.Fields `json:"-"`
}

func (r *TopLevelPingResponse) UnmarshalJSON(data []byte) error {
	type shadow TopLevelPingResponse
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r TopLevelPingResponse) MarshalJSON() ([]byte, error) {
	type shadow TopLevelPingResponse
	return apijson.Marshal((*shadow)(&r), r.JSON)
}
