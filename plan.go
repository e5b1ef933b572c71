package orb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/broady/orb/internal/apijson"
	"github.com/broady/orb/internal/apiquery"
	"github.com/broady/orb/internal/requestconfig"
	"github.com/broady/orb/option"
)

// PlanService manages plans, the price lists that customers subscribe to.
type PlanService struct {
	Options []option.RequestOption
}

func NewPlanService(opts ...option.RequestOption) (r PlanService) {
	r = PlanService{}
	r.Options = opts
	return
}

// New creates a plan along with its prices.
func (r *PlanService) New(ctx context.Context, body PlanNewParams, opts ...option.RequestOption) (res *Plan, err error) {
	opts = slices.Concat(r.Options, opts)
	path := "plans"
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

// Update changes a plan's metadata and external ID. Prices cannot be changed
// on an existing plan.
func (r *PlanService) Update(ctx context.Context, planID string, body PlanUpdateParams, opts ...option.RequestOption) (res *Plan, err error) {
	opts = slices.Concat(r.Options, opts)
	if planID == "" {
		err = errors.New("missing required plan_id parameter")
		return
	}
	path := fmt.Sprintf("plans/%s", url.PathEscape(planID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPut, path, body, &res, opts...)
	return
}

func (r *PlanService) List(ctx context.Context, query PlanListParams, opts ...option.RequestOption) (*Page[Plan], error) {
	opts = slices.Concat(r.Options, opts)
	return getPage[Plan](ctx, "plans", query, opts)
}

func (r *PlanService) Fetch(ctx context.Context, planID string, opts ...option.RequestOption) (res *Plan, err error) {
	opts = slices.Concat(r.Options, opts)
	if planID == "" {
		err = errors.New("missing required plan_id parameter")
		return
	}
	path := fmt.Sprintf("plans/%s", url.PathEscape(planID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...)
	return
}

type Plan struct {
	ID                 string            `json:"id,required"`
	Name               string            `json:"name,required"`
	Description        string            `json:"description,required"`
	Currency           string            `json:"currency,required"`
	InvoicingCurrency  string            `json:"invoicing_currency,required"`
	CreatedAt          time.Time         `json:"created_at,required"`
	Status             string            `json:"status,required" validate:"oneof=active archived draft"`
	ExternalPlanID     *string           `json:"external_plan_id"`
	DefaultInvoiceMemo *string           `json:"default_invoice_memo"`
	NetTerms           *int64            `json:"net_terms"`
	Version            int64             `json:"version,required"`
	Prices             []Price           `json:"prices,required"`
	Adjustments        []Adjustment      `json:"adjustments,required"`
	Product            PlanProduct       `json:"product,required"`
	TrialConfig        PlanTrialConfig   `json:"trial_config,required"`
	Metadata           map[string]string `json:"metadata,required"`
	JSON               apijson.Fields    `json:"-"`
}

func (r *Plan) UnmarshalJSON(data []byte) error {
	type shadow Plan
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r Plan) MarshalJSON() ([]byte, error) {
	type shadow Plan
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// Validate checks the plan strictly. See [option.WithResponseValidation].
func (r *Plan) Validate() error { return apijson.Validate(r) }

type PlanProduct struct {
	ID        string         `json:"id,required"`
	Name      string         `json:"name,required"`
	CreatedAt time.Time      `json:"created_at,required"`
	JSON      apijson.Fields `json:"-"`
}

func (r *PlanProduct) UnmarshalJSON(data []byte) error {
	type shadow PlanProduct
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r PlanProduct) MarshalJSON() ([]byte, error) {
	type shadow PlanProduct
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type PlanTrialConfig struct {
	TrialPeriod     *int64         `json:"trial_period"`
	TrialPeriodUnit string         `json:"trial_period_unit,required" validate:"oneof=days"`
	JSON            apijson.Fields `json:"-"`
}

func (r *PlanTrialConfig) UnmarshalJSON(data []byte) error {
	type shadow PlanTrialConfig
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r PlanTrialConfig) MarshalJSON() ([]byte, error) {
	type shadow PlanTrialConfig
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type PlanNewParams struct {
	Currency           string        `json:"currency,required" validate:"len=3"`
	Name               string        `json:"name,required"`
	Prices             []NewPrice    `json:"prices,required" validate:"min=1"`
	DefaultInvoiceMemo Field[string] `json:"default_invoice_memo,omitzero"`
	ExternalPlanID     Field[string] `json:"external_plan_id,omitzero"`
	NetTerms           Field[int64]  `json:"net_terms,omitzero"`
	// Status defaults to active. Draft plans can be edited before publishing.
	Status   Field[string]             `json:"status,omitzero"`
	Metadata Field[map[string]*string] `json:"metadata,omitzero"`
}

type PlanUpdateParams struct {
	ExternalPlanID Field[string]             `json:"external_plan_id,omitzero"`
	Metadata       Field[map[string]*string] `json:"metadata,omitzero"`
}

type PlanListParams struct {
	Cursor       *string    `query:"cursor,omitempty"`
	Limit        *int64     `query:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
	Status       *string    `query:"status,omitempty" validate:"omitempty,oneof=active archived draft"`
	CreatedAtGt  *time.Time `query:"created_at[gt],omitempty"`
	CreatedAtGte *time.Time `query:"created_at[gte],omitempty"`
	CreatedAtLt  *time.Time `query:"created_at[lt],omitempty"`
	CreatedAtLte *time.Time `query:"created_at[lte],omitempty"`
}

func (r PlanListParams) URLQuery() (url.Values, error) { return apiquery.Marshal(r) }

func (r PlanListParams) withCursor(cursor string) PlanListParams {
	r.Cursor = &cursor
	return r
}
