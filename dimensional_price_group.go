package orb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/broady/orb/internal/apijson"
	"github.com/broady/orb/internal/apiquery"
	"github.com/broady/orb/internal/requestconfig"
	"github.com/broady/orb/option"
)

// DimensionalPriceGroupService manages dimensional price groups, which bind a
// billable metric to the event properties that split its usage.
type DimensionalPriceGroupService struct {
	Options                         []option.RequestOption
	ExternalDimensionalPriceGroupID DimensionalPriceGroupExternalDimensionalPriceGroupIDService
}

func NewDimensionalPriceGroupService(opts ...option.RequestOption) (r DimensionalPriceGroupService) {
	r = DimensionalPriceGroupService{}
	r.Options = opts
	r.ExternalDimensionalPriceGroupID = NewDimensionalPriceGroupExternalDimensionalPriceGroupIDService(opts...)
	return
}

func (r *DimensionalPriceGroupService) New(ctx context.Context, body DimensionalPriceGroupNewParams, opts ...option.RequestOption) (res *DimensionalPriceGroup, err error) {
	opts = slices.Concat(r.Options, opts)
	path := "dimensional_price_groups"
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

func (r *DimensionalPriceGroupService) List(ctx context.Context, query DimensionalPriceGroupListParams, opts ...option.RequestOption) (*Page[DimensionalPriceGroup], error) {
	opts = slices.Concat(r.Options, opts)
	return getPage[DimensionalPriceGroup](ctx, "dimensional_price_groups", query, opts)
}

func (r *DimensionalPriceGroupService) Fetch(ctx context.Context, dimensionalPriceGroupID string, opts ...option.RequestOption) (res *DimensionalPriceGroup, err error) {
	opts = slices.Concat(r.Options, opts)
	if dimensionalPriceGroupID == "" {
		err = errors.New("missing required dimensional_price_group_id parameter")
		return
	}
	path := fmt.Sprintf("dimensional_price_groups/%s", url.PathEscape(dimensionalPriceGroupID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...)
	return
}

func (r *DimensionalPriceGroupService) Update(ctx context.Context, dimensionalPriceGroupID string, body DimensionalPriceGroupUpdateParams, opts ...option.RequestOption) (res *DimensionalPriceGroup, err error) {
	opts = slices.Concat(r.Options, opts)
	if dimensionalPriceGroupID == "" {
		err = errors.New("missing required dimensional_price_group_id parameter")
		return
	}
	path := fmt.Sprintf("dimensional_price_groups/%s", url.PathEscape(dimensionalPriceGroupID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPut, path, body, &res, opts...)
	return
}

// DimensionalPriceGroupExternalDimensionalPriceGroupIDService addresses
// groups by the caller's external ID.
type DimensionalPriceGroupExternalDimensionalPriceGroupIDService struct {
	Options []option.RequestOption
}

func NewDimensionalPriceGroupExternalDimensionalPriceGroupIDService(opts ...option.RequestOption) (r DimensionalPriceGroupExternalDimensionalPriceGroupIDService) {
	r = DimensionalPriceGroupExternalDimensionalPriceGroupIDService{}
	r.Options = opts
	return
}

func (r *DimensionalPriceGroupExternalDimensionalPriceGroupIDService) Fetch(ctx context.Context, externalDimensionalPriceGroupID string, opts ...option.RequestOption) (res *DimensionalPriceGroup, err error) {
	opts = slices.Concat(r.Options, opts)
	if externalDimensionalPriceGroupID == "" {
		err = errors.New("missing required external_dimensional_price_group_id parameter")
		return
	}
	path := fmt.Sprintf("dimensional_price_groups/external_dimensional_price_group_id/%s", url.PathEscape(externalDimensionalPriceGroupID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...)
	return
}

func (r *DimensionalPriceGroupExternalDimensionalPriceGroupIDService) Update(ctx context.Context, externalDimensionalPriceGroupID string, body ExternalDimensionalPriceGroupIDUpdateParams, opts ...option.RequestOption) (res *DimensionalPriceGroup, err error) {
	opts = slices.Concat(r.Options, opts)
	if externalDimensionalPriceGroupID == "" {
		err = errors.New("missing required external_dimensional_price_group_id parameter")
		return
	}
	path := fmt.Sprintf("dimensional_price_groups/external_dimensional_price_group_id/%s", url.PathEscape(externalDimensionalPriceGroupID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPut, path, body, &res, opts...)
	return
}

type DimensionalPriceGroup struct {
	ID                              string            `json:"id,required"`
	Name                            string            `json:"name,required"`
	BillableMetricID                string            `json:"billable_metric_id,required"`
	Dimensions                      []string          `json:"dimensions,required" validate:"min=1"`
	ExternalDimensionalPriceGroupID *string           `json:"external_dimensional_price_group_id"`
	Metadata                        map[string]string `json:"metadata,required"`
	JSON                            apijson.Fields    `json:"-"`
}

func (r *DimensionalPriceGroup) UnmarshalJSON(data []byte) error {
	type shadow DimensionalPriceGroup
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r DimensionalPriceGroup) MarshalJSON() ([]byte, error) {
	type shadow DimensionalPriceGroup
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type DimensionalPriceGroupNewParams struct {
	BillableMetricID string   `json:"billable_metric_id,required"`
	Name             string   `json:"name,required"`
	Dimensions       []string `json:"dimensions,required" validate:"min=1"`

	ExternalDimensionalPriceGroupID Field[string]             `json:"external_dimensional_price_group_id,omitzero"`
	Metadata                        Field[map[string]*string] `json:"metadata,omitzero"`
}

type DimensionalPriceGroupUpdateParams struct {
	ExternalDimensionalPriceGroupID Field[string]             `json:"external_dimensional_price_group_id,omitzero"`
	Metadata                        Field[map[string]*string] `json:"metadata,omitzero"`
}

// ExternalDimensionalPriceGroupIDUpdateParams leaves metadata untouched when
// Metadata is unset and clears it when Metadata is [Null].
type ExternalDimensionalPriceGroupIDUpdateParams struct {
	ExternalDimensionalPriceGroupID Field[string]             `json:"external_dimensional_price_group_id,omitzero"`
	Metadata                        Field[map[string]*string] `json:"metadata,omitzero"`
}

type DimensionalPriceGroupListParams struct {
	Cursor *string `query:"cursor,omitempty"`
	Limit  *int64  `query:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
}

func (r DimensionalPriceGroupListParams) URLQuery() (url.Values, error) {
	return apiquery.Marshal(r)
}

func (r DimensionalPriceGroupListParams) withCursor(cursor string) DimensionalPriceGroupListParams {
	r.Cursor = &cursor
	return r
}
