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

// CouponService manages coupons, redeemable discounts applied to subscriptions.
type CouponService struct {
	Options       []option.RequestOption
	Subscriptions CouponSubscriptionService
}

func NewCouponService(opts ...option.RequestOption) (r CouponService) {
	r = CouponService{}
	r.Options = opts
	r.Subscriptions = NewCouponSubscriptionService(opts...)
	return
}

// New creates a coupon.
func (r *CouponService) New(ctx context.Context, body CouponNewParams, opts ...option.RequestOption) (res *Coupon, err error) {
	opts = slices.Concat(r.Options, opts)
	path := "coupons"
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

// List returns coupons, most recently created first. Archived coupons are
// left out unless ShowArchived is set.
func (r *CouponService) List(ctx context.Context, query CouponListParams, opts ...option.RequestOption) (*Page[Coupon], error) {
	opts = slices.Concat(r.Options, opts)
	return getPage[Coupon](ctx, "coupons", query, opts)
}

func (r *CouponService) Fetch(ctx context.Context, couponID string, opts ...option.RequestOption) (res *Coupon, err error) {
	opts = slices.Concat(r.Options, opts)
	if couponID == "" {
		err = errors.New("missing required coupon_id parameter")
		return
	}
	path := fmt.Sprintf("coupons/%s", url.PathEscape(couponID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...)
	return
}

// Archive stops a coupon from being redeemed. Subscriptions that already
// redeemed it keep the discount.
func (r *CouponService) Archive(ctx context.Context, couponID string, opts ...option.RequestOption) (res *Coupon, err error) {
	opts = slices.Concat(r.Options, opts)
	if couponID == "" {
		err = errors.New("missing required coupon_id parameter")
		return
	}
	path := fmt.Sprintf("coupons/%s/archive", url.PathEscape(couponID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, nil, &res, opts...)
	return
}

// CouponSubscriptionService lists the subscriptions a coupon was redeemed on.
type CouponSubscriptionService struct {
	Options []option.RequestOption
}

func NewCouponSubscriptionService(opts ...option.RequestOption) (r CouponSubscriptionService) {
	r = CouponSubscriptionService{}
	r.Options = opts
	return
}

func (r *CouponSubscriptionService) List(ctx context.Context, couponID string, query CouponSubscriptionListParams, opts ...option.RequestOption) (*Page[Subscription], error) {
	opts = slices.Concat(r.Options, opts)
	if couponID == "" {
		return nil, errors.New("missing required coupon_id parameter")
	}
	path := fmt.Sprintf("coupons/%s/subscriptions", url.PathEscape(couponID))
	return getPage[Subscription](ctx, path, query, opts)
}

// Coupon is a discount that customers redeem with a code.
type Coupon struct {
	ID             string `json:"id,required"`
	RedemptionCode string `json:"redemption_code,required"`
	// Discount is a percentage or amount discount.
	Discount         Discount       `json:"discount,required"`
	TimesRedeemed    int64          `json:"times_redeemed,required" validate:"gte=0"`
	DurationInMonths *int64         `json:"duration_in_months"`
	MaxRedemptions   *int64         `json:"max_redemptions"`
	ArchivedAt       *time.Time     `json:"archived_at"`
	JSON             apijson.Fields `json:"-"`
}

func (r *Coupon) UnmarshalJSON(data []byte) error {
	type shadow Coupon
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r Coupon) MarshalJSON() ([]byte, error) {
	type shadow Coupon
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// Validate checks the coupon strictly. See [option.WithResponseValidation].
func (r *Coupon) Validate() error { return apijson.Validate(r) }

type CouponNewParams struct {
	Discount       CouponNewParamsDiscount `json:"discount,required"`
	RedemptionCode string                  `json:"redemption_code,required"`
	// DurationInMonths limits how long the discount applies once redeemed.
	// Null means forever.
	DurationInMonths Field[int64] `json:"duration_in_months,omitzero"`
	// MaxRedemptions caps how many times the coupon can be redeemed.
	// Null means no cap.
	MaxRedemptions Field[int64] `json:"max_redemptions,omitzero"`
}

// CouponNewParamsDiscount is the discount of a new coupon: a
// [CouponPercentageDiscountParam] or a [CouponAmountDiscountParam].
type CouponNewParamsDiscount struct {
	variant couponNewParamsDiscountVariant
}

type couponNewParamsDiscountVariant interface{ implCouponNewParamsDiscount() }

func (CouponPercentageDiscountParam) implCouponNewParamsDiscount() {}
func (CouponAmountDiscountParam) implCouponNewParamsDiscount()     {}

var couponNewParamsDiscountUnion = apijson.NewUnion("CouponNewParamsDiscount", "discount_type",
	apijson.Variant[CouponPercentageDiscountParam, couponNewParamsDiscountVariant]("percentage"),
	apijson.Variant[CouponAmountDiscountParam, couponNewParamsDiscountVariant]("amount"),
)

func NewCouponPercentageDiscount(percentage float64) CouponNewParamsDiscount {
	return CouponNewParamsDiscount{variant: CouponPercentageDiscountParam{PercentageDiscount: percentage}}
}

func NewCouponAmountDiscount(amount decimal.Decimal) CouponNewParamsDiscount {
	return CouponNewParamsDiscount{variant: CouponAmountDiscountParam{AmountDiscount: amount}}
}

func (r CouponNewParamsDiscount) Variant() any {
	if r.variant == nil {
		return nil
	}
	return r.variant
}

func (r *CouponNewParamsDiscount) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := couponNewParamsDiscountUnion.Decode(data)
	if err != nil {
		return err
	}
	r.variant = v
	return nil
}

func (r CouponNewParamsDiscount) MarshalJSON() ([]byte, error) {
	if r.variant == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.variant)
}

type CouponPercentageDiscountParam struct {
	PercentageDiscount float64 `json:"percentage_discount" validate:"gte=0,lte=1"`
	DiscountType       string  `json:"discount_type"`
}

func (r CouponPercentageDiscountParam) MarshalJSON() ([]byte, error) {
	type shadow CouponPercentageDiscountParam
	r.DiscountType = "percentage"
	return json.Marshal(shadow(r))
}

type CouponAmountDiscountParam struct {
	AmountDiscount decimal.Decimal `json:"amount_discount"`
	DiscountType   string          `json:"discount_type"`
}

func (r CouponAmountDiscountParam) MarshalJSON() ([]byte, error) {
	type shadow CouponAmountDiscountParam
	r.DiscountType = "amount"
	return json.Marshal(shadow(r))
}

type CouponListParams struct {
	Cursor         *string `query:"cursor,omitempty"`
	Limit          *int64  `query:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
	RedemptionCode *string `query:"redemption_code,omitempty"`
	ShowArchived   *bool   `query:"show_archived,omitempty"`
}

func (r CouponListParams) URLQuery() (url.Values, error) { return apiquery.Marshal(r) }

func (r CouponListParams) withCursor(cursor string) CouponListParams {
	r.Cursor = &cursor
	return r
}

type CouponSubscriptionListParams struct {
	Cursor *string `query:"cursor,omitempty"`
	Limit  *int64  `query:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
}

func (r CouponSubscriptionListParams) URLQuery() (url.Values, error) { return apiquery.Marshal(r) }

func (r CouponSubscriptionListParams) withCursor(cursor string) CouponSubscriptionListParams {
	r.Cursor = &cursor
	return r
}
