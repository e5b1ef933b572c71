package orb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/broady/orb/internal/apijson"
	"github.com/broady/orb/internal/apiquery"
	"github.com/broady/orb/internal/requestconfig"
	"github.com/broady/orb/option"
)

// SubscriptionService manages subscriptions, which tie a customer to a plan
// and drive invoicing.
type SubscriptionService struct {
	Options []option.RequestOption
}

func NewSubscriptionService(opts ...option.RequestOption) (r SubscriptionService) {
	r = SubscriptionService{}
	r.Options = opts
	return
}

// New subscribes a customer to a plan. Either CustomerID or
// ExternalCustomerID identifies the customer, and either PlanID or
// ExternalPlanID identifies the plan.
func (r *SubscriptionService) New(ctx context.Context, body SubscriptionNewParams, opts ...option.RequestOption) (res *Subscription, err error) {
	opts = slices.Concat(r.Options, opts)
	path := "subscriptions"
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

func (r *SubscriptionService) Update(ctx context.Context, subscriptionID string, body SubscriptionUpdateParams, opts ...option.RequestOption) (res *Subscription, err error) {
	opts = slices.Concat(r.Options, opts)
	if subscriptionID == "" {
		err = errors.New("missing required subscription_id parameter")
		return
	}
	path := fmt.Sprintf("subscriptions/%s", url.PathEscape(subscriptionID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPut, path, body, &res, opts...)
	return
}

func (r *SubscriptionService) List(ctx context.Context, query SubscriptionListParams, opts ...option.RequestOption) (*Page[Subscription], error) {
	opts = slices.Concat(r.Options, opts)
	return getPage[Subscription](ctx, "subscriptions", query, opts)
}

func (r *SubscriptionService) Fetch(ctx context.Context, subscriptionID string, opts ...option.RequestOption) (res *Subscription, err error) {
	opts = slices.Concat(r.Options, opts)
	if subscriptionID == "" {
		err = errors.New("missing required subscription_id parameter")
		return
	}
	path := fmt.Sprintf("subscriptions/%s", url.PathEscape(subscriptionID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...)
	return
}

// Cancel ends a subscription at the time chosen by body.CancelOption.
func (r *SubscriptionService) Cancel(ctx context.Context, subscriptionID string, body SubscriptionCancelParams, opts ...option.RequestOption) (res *Subscription, err error) {
	opts = slices.Concat(r.Options, opts)
	if subscriptionID == "" {
		err = errors.New("missing required subscription_id parameter")
		return
	}
	path := fmt.Sprintf("subscriptions/%s/cancel", url.PathEscape(subscriptionID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

type Subscription struct {
	ID                            string     `json:"id,required"`
	CreatedAt                     time.Time  `json:"created_at,required"`
	StartDate                     time.Time  `json:"start_date,required"`
	EndDate                       *time.Time `json:"end_date"`
	CurrentBillingPeriodStartDate *time.Time `json:"current_billing_period_start_date"`
	CurrentBillingPeriodEndDate   *time.Time `json:"current_billing_period_end_date"`
	Status                        string     `json:"status,required" validate:"oneof=active ended upcoming"`
	Customer                      Customer   `json:"customer,required"`
	Plan                          *Plan      `json:"plan"`
	// AutoCollection overrides the customer's setting when not null.
	AutoCollection       *bool                `json:"auto_collection"`
	DefaultInvoiceMemo   *string              `json:"default_invoice_memo"`
	NetTerms             int64                `json:"net_terms,required" validate:"gte=0"`
	BillingCycleDay      int64                `json:"billing_cycle_day,required" validate:"gte=1,lte=31"`
	ActivePlanPhaseOrder *int64               `json:"active_plan_phase_order"`
	InvoicingThreshold   *decimal.Decimal     `json:"invoicing_threshold"`
	DiscountIntervals    []DiscountInterval   `json:"discount_intervals,required"`
	AdjustmentIntervals  []AdjustmentInterval `json:"adjustment_intervals,required"`
	PriceIntervals       []PriceInterval      `json:"price_intervals,required"`
	RedeemedCoupon       *RedeemedCoupon      `json:"redeemed_coupon"`
	TrialInfo            TrialInfo            `json:"trial_info,required"`
	Metadata             map[string]string    `json:"metadata,required"`
	JSON                 apijson.Fields       `json:"-"`
}

func (r *Subscription) UnmarshalJSON(data []byte) error {
	type shadow Subscription
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r Subscription) MarshalJSON() ([]byte, error) {
	type shadow Subscription
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// Validate checks the subscription strictly. See [option.WithResponseValidation].
func (r *Subscription) Validate() error { return apijson.Validate(r) }

// DiscountInterval is a discount applied to a subscription over a period,
// dispatched on discount_type.
type DiscountInterval struct {
	variant discountIntervalVariant
}

type discountIntervalVariant interface{ implDiscountInterval() }

func (AmountDiscountInterval) implDiscountInterval()     {}
func (PercentageDiscountInterval) implDiscountInterval() {}
func (UsageDiscountInterval) implDiscountInterval()      {}

var discountIntervalUnion = apijson.NewUnion("DiscountInterval", "discount_type",
	apijson.Variant[AmountDiscountInterval, discountIntervalVariant]("amount"),
	apijson.Variant[PercentageDiscountInterval, discountIntervalVariant]("percentage"),
	apijson.Variant[UsageDiscountInterval, discountIntervalVariant]("usage"),
)

func NewDiscountIntervalFromAmount(v AmountDiscountInterval) DiscountInterval {
	return DiscountInterval{variant: v}
}

func NewDiscountIntervalFromPercentage(v PercentageDiscountInterval) DiscountInterval {
	return DiscountInterval{variant: v}
}

func NewDiscountIntervalFromUsage(v UsageDiscountInterval) DiscountInterval {
	return DiscountInterval{variant: v}
}

func (r DiscountInterval) Variant() any {
	if r.variant == nil {
		return nil
	}
	return r.variant
}

func (r DiscountInterval) AsAmount() (v AmountDiscountInterval, ok bool) {
	v, ok = r.variant.(AmountDiscountInterval)
	return
}

func (r DiscountInterval) AsPercentage() (v PercentageDiscountInterval, ok bool) {
	v, ok = r.variant.(PercentageDiscountInterval)
	return
}

func (r DiscountInterval) AsUsage() (v UsageDiscountInterval, ok bool) {
	v, ok = r.variant.(UsageDiscountInterval)
	return
}

func (r *DiscountInterval) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := discountIntervalUnion.Decode(data)
	if err != nil {
		return err
	}
	r.variant = v
	return nil
}

func (r DiscountInterval) MarshalJSON() ([]byte, error) {
	if r.variant == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.variant)
}

type DiscountIntervalBase struct {
	AppliesToPriceIDs         []string   `json:"applies_to_price_ids,required"`
	AppliesToPriceIntervalIDs []string   `json:"applies_to_price_interval_ids,required"`
	StartDate                 time.Time  `json:"start_date,required"`
	EndDate                   *time.Time `json:"end_date"`
	DiscountType              string     `json:"discount_type,required"`
}

type AmountDiscountInterval struct {
	DiscountIntervalBase
	AmountDiscount decimal.Decimal `json:"amount_discount,required"`
	JSON           apijson.Fields  `json:"-"`
}

func (r *AmountDiscountInterval) UnmarshalJSON(data []byte) error {
	type shadow AmountDiscountInterval
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r AmountDiscountInterval) MarshalJSON() ([]byte, error) {
	type shadow AmountDiscountInterval
	r.DiscountType = "amount"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type PercentageDiscountInterval struct {
	DiscountIntervalBase
	PercentageDiscount float64        `json:"percentage_discount,required" validate:"gte=0,lte=1"`
	JSON               apijson.Fields `json:"-"`
}

func (r *PercentageDiscountInterval) UnmarshalJSON(data []byte) error {
	type shadow PercentageDiscountInterval
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r PercentageDiscountInterval) MarshalJSON() ([]byte, error) {
	type shadow PercentageDiscountInterval
	r.DiscountType = "percentage"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// UsageDiscountInterval waives a number of usage units.
type UsageDiscountInterval struct {
	DiscountIntervalBase
	UsageDiscount float64        `json:"usage_discount,required" validate:"gte=0"`
	JSON          apijson.Fields `json:"-"`
}

func (r *UsageDiscountInterval) UnmarshalJSON(data []byte) error {
	type shadow UsageDiscountInterval
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r UsageDiscountInterval) MarshalJSON() ([]byte, error) {
	type shadow UsageDiscountInterval
	r.DiscountType = "usage"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type AdjustmentInterval struct {
	ID                        string         `json:"id,required"`
	Adjustment                Adjustment     `json:"adjustment,required"`
	AppliesToPriceIntervalIDs []string       `json:"applies_to_price_interval_ids,required"`
	StartDate                 time.Time      `json:"start_date,required"`
	EndDate                   *time.Time     `json:"end_date"`
	JSON                      apijson.Fields `json:"-"`
}

func (r *AdjustmentInterval) UnmarshalJSON(data []byte) error {
	type shadow AdjustmentInterval
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r AdjustmentInterval) MarshalJSON() ([]byte, error) {
	type shadow AdjustmentInterval
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// PriceInterval is a price active on a subscription for a period.
type PriceInterval struct {
	ID                 string         `json:"id,required"`
	Price              Price          `json:"price,required"`
	BillingCycleDay    int64          `json:"billing_cycle_day,required"`
	StartDate          time.Time      `json:"start_date,required"`
	EndDate            *time.Time     `json:"end_date"`
	FixedPriceQuantity *float64       `json:"fixed_price_quantity"`
	JSON               apijson.Fields `json:"-"`
}

func (r *PriceInterval) UnmarshalJSON(data []byte) error {
	type shadow PriceInterval
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r PriceInterval) MarshalJSON() ([]byte, error) {
	type shadow PriceInterval
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type RedeemedCoupon struct {
	CouponID  string         `json:"coupon_id,required"`
	StartDate time.Time      `json:"start_date,required"`
	EndDate   *time.Time     `json:"end_date"`
	JSON      apijson.Fields `json:"-"`
}

func (r *RedeemedCoupon) UnmarshalJSON(data []byte) error {
	type shadow RedeemedCoupon
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r RedeemedCoupon) MarshalJSON() ([]byte, error) {
	type shadow RedeemedCoupon
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type TrialInfo struct {
	EndDate *time.Time     `json:"end_date"`
	JSON    apijson.Fields `json:"-"`
}

func (r *TrialInfo) UnmarshalJSON(data []byte) error {
	type shadow TrialInfo
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r TrialInfo) MarshalJSON() ([]byte, error) {
	type shadow TrialInfo
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type SubscriptionNewParams struct {
	CustomerID         Field[string] `json:"customer_id,omitzero"`
	ExternalCustomerID Field[string] `json:"external_customer_id,omitzero"`
	PlanID             Field[string] `json:"plan_id,omitzero"`
	ExternalPlanID     Field[string] `json:"external_plan_id,omitzero"`
	// StartDate defaults to now.
	StartDate            Field[DateOrDateTime]     `json:"start_date,omitzero"`
	EndDate              Field[DateOrDateTime]     `json:"end_date,omitzero"`
	AutoCollection       Field[bool]               `json:"auto_collection,omitzero"`
	DefaultInvoiceMemo   Field[string]             `json:"default_invoice_memo,omitzero"`
	NetTerms             Field[int64]              `json:"net_terms,omitzero"`
	CouponRedemptionCode Field[string]             `json:"coupon_redemption_code,omitzero"`
	InvoicingThreshold   Field[string]             `json:"invoicing_threshold,omitzero"`
	Metadata             Field[map[string]*string] `json:"metadata,omitzero"`
}

// SubscriptionUpdateParams changes the fields that are set. AutoCollection,
// DefaultInvoiceMemo and InvoicingThreshold can be set to null to fall back
// to the customer's setting.
type SubscriptionUpdateParams struct {
	AutoCollection     Field[bool]               `json:"auto_collection,omitzero"`
	DefaultInvoiceMemo Field[string]             `json:"default_invoice_memo,omitzero"`
	NetTerms           Field[int64]              `json:"net_terms,omitzero"`
	InvoicingThreshold Field[string]             `json:"invoicing_threshold,omitzero"`
	Metadata           Field[map[string]*string] `json:"metadata,omitzero"`
}

type SubscriptionCancelParams struct {
	CancelOption string `json:"cancel_option,required" validate:"oneof=end_of_subscription_term immediate requested_date"`
	// CancellationDate is used with the requested_date option.
	CancellationDate Field[time.Time] `json:"cancellation_date,omitzero"`
}

type SubscriptionListParams struct {
	Cursor             *string    `query:"cursor,omitempty"`
	Limit              *int64     `query:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
	CustomerID         []string   `query:"customer_id[],omitempty"`
	ExternalCustomerID []string   `query:"external_customer_id[],omitempty"`
	Status             *string    `query:"status,omitempty" validate:"omitempty,oneof=active ended upcoming"`
	CreatedAtGt        *time.Time `query:"created_at[gt],omitempty"`
	CreatedAtGte       *time.Time `query:"created_at[gte],omitempty"`
	CreatedAtLt        *time.Time `query:"created_at[lt],omitempty"`
	CreatedAtLte       *time.Time `query:"created_at[lte],omitempty"`
}

func (r SubscriptionListParams) URLQuery() (url.Values, error) { return apiquery.Marshal(r) }

func (r SubscriptionListParams) withCursor(cursor string) SubscriptionListParams {
	r.Cursor = &cursor
	return r
}
