package orb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/broady/orb/internal/apijson"
	"github.com/broady/orb/internal/apiquery"
	"github.com/broady/orb/internal/requestconfig"
	"github.com/broady/orb/option"
)

// PriceService manages prices, the billing rules attached to items.
type PriceService struct {
	Options         []option.RequestOption
	ExternalPriceID PriceExternalPriceIDService
}

func NewPriceService(opts ...option.RequestOption) (r PriceService) {
	r = PriceService{}
	r.Options = opts
	r.ExternalPriceID = NewPriceExternalPriceIDService(opts...)
	return
}

// New creates a price that is not attached to any plan.
func (r *PriceService) New(ctx context.Context, body NewPrice, opts ...option.RequestOption) (res *Price, err error) {
	opts = slices.Concat(r.Options, opts)
	path := "prices"
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

// Update changes the metadata of a price. Other fields cannot be changed.
func (r *PriceService) Update(ctx context.Context, priceID string, body PriceUpdateParams, opts ...option.RequestOption) (res *Price, err error) {
	opts = slices.Concat(r.Options, opts)
	if priceID == "" {
		err = errors.New("missing required price_id parameter")
		return
	}
	path := fmt.Sprintf("prices/%s", url.PathEscape(priceID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPut, path, body, &res, opts...)
	return
}

func (r *PriceService) List(ctx context.Context, query PriceListParams, opts ...option.RequestOption) (*Page[Price], error) {
	opts = slices.Concat(r.Options, opts)
	return getPage[Price](ctx, "prices", query, opts)
}

func (r *PriceService) Fetch(ctx context.Context, priceID string, opts ...option.RequestOption) (res *Price, err error) {
	opts = slices.Concat(r.Options, opts)
	if priceID == "" {
		err = errors.New("missing required price_id parameter")
		return
	}
	path := fmt.Sprintf("prices/%s", url.PathEscape(priceID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...)
	return
}

// Evaluate computes what a price would charge over a timeframe, optionally
// grouped by event properties.
func (r *PriceService) Evaluate(ctx context.Context, priceID string, body PriceEvaluateParams, opts ...option.RequestOption) (res *PriceEvaluateResponse, err error) {
	opts = slices.Concat(r.Options, opts)
	if priceID == "" {
		err = errors.New("missing required price_id parameter")
		return
	}
	path := fmt.Sprintf("prices/%s/evaluate", url.PathEscape(priceID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

// PriceExternalPriceIDService looks up prices by the caller's own identifier.
type PriceExternalPriceIDService struct {
	Options []option.RequestOption
}

func NewPriceExternalPriceIDService(opts ...option.RequestOption) (r PriceExternalPriceIDService) {
	r = PriceExternalPriceIDService{}
	r.Options = opts
	return
}

func (r *PriceExternalPriceIDService) Fetch(ctx context.Context, externalPriceID string, opts ...option.RequestOption) (res *Price, err error) {
	opts = slices.Concat(r.Options, opts)
	if externalPriceID == "" {
		err = errors.New("missing required external_price_id parameter")
		return
	}
	path := fmt.Sprintf("prices/external_price_id/%s", url.PathEscape(externalPriceID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...)
	return
}

// Price is one of [UnitPrice], [PackagePrice], [MatrixPrice], [TieredPrice] or
// [BulkPrice], chosen by model_type. Price models this package does not know
// decode as [UnknownPrice].
type Price struct {
	variant priceVariant
}

type priceVariant interface{ implPrice() }

func (UnitPrice) implPrice()    {}
func (PackagePrice) implPrice() {}
func (MatrixPrice) implPrice()  {}
func (TieredPrice) implPrice()  {}
func (BulkPrice) implPrice()    {}
func (UnknownPrice) implPrice() {}

var priceUnion = apijson.NewUnion("Price", "model_type",
	apijson.Variant[UnitPrice, priceVariant]("unit"),
	apijson.Variant[PackagePrice, priceVariant]("package"),
	apijson.Variant[MatrixPrice, priceVariant]("matrix"),
	apijson.Variant[TieredPrice, priceVariant]("tiered"),
	apijson.Variant[BulkPrice, priceVariant]("bulk"),
).WithUnknown(func(raw json.RawMessage) priceVariant {
	return UnknownPrice{Raw: raw}
})

func NewPriceFromUnitPrice(v UnitPrice) Price       { return Price{variant: v} }
func NewPriceFromPackagePrice(v PackagePrice) Price { return Price{variant: v} }
func NewPriceFromMatrixPrice(v MatrixPrice) Price   { return Price{variant: v} }
func NewPriceFromTieredPrice(v TieredPrice) Price   { return Price{variant: v} }
func NewPriceFromBulkPrice(v BulkPrice) Price       { return Price{variant: v} }

func (r Price) Variant() any {
	if r.variant == nil {
		return nil
	}
	return r.variant
}

func (r Price) AsUnit() (v UnitPrice, ok bool) {
	v, ok = r.variant.(UnitPrice)
	return
}

func (r Price) AsPackage() (v PackagePrice, ok bool) {
	v, ok = r.variant.(PackagePrice)
	return
}

func (r Price) AsMatrix() (v MatrixPrice, ok bool) {
	v, ok = r.variant.(MatrixPrice)
	return
}

func (r Price) AsTiered() (v TieredPrice, ok bool) {
	v, ok = r.variant.(TieredPrice)
	return
}

func (r Price) AsBulk() (v BulkPrice, ok bool) {
	v, ok = r.variant.(BulkPrice)
	return
}

func (r Price) AsUnknown() (v UnknownPrice, ok bool) {
	v, ok = r.variant.(UnknownPrice)
	return
}

// Base returns the fields every known price model shares. ok is false for an
// unset or unknown price.
func (r Price) Base() (base PriceBase, ok bool) {
	switch v := r.variant.(type) {
	case UnitPrice:
		return v.PriceBase, true
	case PackagePrice:
		return v.PriceBase, true
	case MatrixPrice:
		return v.PriceBase, true
	case TieredPrice:
		return v.PriceBase, true
	case BulkPrice:
		return v.PriceBase, true
	}
	return PriceBase{}, false
}

func (r *Price) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := priceUnion.Decode(data)
	if err != nil {
		return err
	}
	r.variant = v
	return nil
}

func (r Price) MarshalJSON() ([]byte, error) {
	if r.variant == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.variant)
}

// PriceBase holds the fields shared by every price model.
type PriceBase struct {
	ID                          string                     `json:"id,required"`
	Name                        string                     `json:"name,required"`
	ExternalPriceID             *string                    `json:"external_price_id"`
	Currency                    string                     `json:"currency,required"`
	Cadence                     string                     `json:"cadence,required" validate:"oneof=one_time monthly quarterly semi_annual annual custom"`
	PriceType                   string                     `json:"price_type,required" validate:"oneof=usage_price fixed_price"`
	CreatedAt                   time.Time                  `json:"created_at,required"`
	BillableMetric              *IDRef                     `json:"billable_metric"`
	BillingCycleConfiguration   BillingCycleConfiguration  `json:"billing_cycle_configuration,required"`
	ConversionRate              *float64                   `json:"conversion_rate"`
	ConversionRateConfig        ConversionRateConfig       `json:"conversion_rate_config"`
	Discount                    Discount                   `json:"discount"`
	FixedPriceQuantity          *float64                   `json:"fixed_price_quantity"`
	InvoicingCycleConfiguration *BillingCycleConfiguration `json:"invoicing_cycle_configuration"`
	Item                        ItemRef                    `json:"item,required"`
	Metadata                    map[string]string          `json:"metadata,required"`
	PlanPhaseOrder              *int64                     `json:"plan_phase_order"`
}

// IDRef points at another object by ID.
type IDRef struct {
	ID   string         `json:"id,required"`
	JSON apijson.Fields `json:"-"`
}

func (r *IDRef) UnmarshalJSON(data []byte) error {
	type shadow IDRef
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r IDRef) MarshalJSON() ([]byte, error) {
	type shadow IDRef
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// ItemRef names the item a price bills for.
type ItemRef struct {
	ID   string         `json:"id,required"`
	Name string         `json:"name,required"`
	JSON apijson.Fields `json:"-"`
}

func (r *ItemRef) UnmarshalJSON(data []byte) error {
	type shadow ItemRef
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r ItemRef) MarshalJSON() ([]byte, error) {
	type shadow ItemRef
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// UnitPrice charges a fixed amount per unit.
type UnitPrice struct {
	PriceBase
	UnitConfig UnitConfig     `json:"unit_config,required"`
	ModelType  string         `json:"model_type,required" validate:"eq=unit"`
	JSON       apijson.Fields `json:"-"`
}

func (r *UnitPrice) UnmarshalJSON(data []byte) error {
	type shadow UnitPrice
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r UnitPrice) MarshalJSON() ([]byte, error) {
	type shadow UnitPrice
	r.ModelType = "unit"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type UnitConfig struct {
	UnitAmount decimal.Decimal `json:"unit_amount,required"`
	JSON       apijson.Fields  `json:"-"`
}

func (r *UnitConfig) UnmarshalJSON(data []byte) error {
	type shadow UnitConfig
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r UnitConfig) MarshalJSON() ([]byte, error) {
	type shadow UnitConfig
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// PackagePrice charges PackageAmount for every PackageSize units, rounding up.
type PackagePrice struct {
	PriceBase
	PackageConfig PackageConfig  `json:"package_config,required"`
	ModelType     string         `json:"model_type,required" validate:"eq=package"`
	JSON          apijson.Fields `json:"-"`
}

func (r *PackagePrice) UnmarshalJSON(data []byte) error {
	type shadow PackagePrice
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r PackagePrice) MarshalJSON() ([]byte, error) {
	type shadow PackagePrice
	r.ModelType = "package"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type PackageConfig struct {
	PackageAmount decimal.Decimal `json:"package_amount,required"`
	PackageSize   int64           `json:"package_size,required" validate:"gt=0"`
	JSON          apijson.Fields  `json:"-"`
}

func (r *PackageConfig) UnmarshalJSON(data []byte) error {
	type shadow PackageConfig
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r PackageConfig) MarshalJSON() ([]byte, error) {
	type shadow PackageConfig
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// MatrixPrice charges a unit amount that depends on up to two event properties.
type MatrixPrice struct {
	PriceBase
	MatrixConfig MatrixConfig   `json:"matrix_config,required"`
	ModelType    string         `json:"model_type,required" validate:"eq=matrix"`
	JSON         apijson.Fields `json:"-"`
}

func (r *MatrixPrice) UnmarshalJSON(data []byte) error {
	type shadow MatrixPrice
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r MatrixPrice) MarshalJSON() ([]byte, error) {
	type shadow MatrixPrice
	r.ModelType = "matrix"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type MatrixConfig struct {
	DefaultUnitAmount decimal.Decimal `json:"default_unit_amount,required"`
	Dimensions        []*string       `json:"dimensions,required" validate:"max=2"`
	MatrixValues      []MatrixValue   `json:"matrix_values,required"`
	JSON              apijson.Fields  `json:"-"`
}

func (r *MatrixConfig) UnmarshalJSON(data []byte) error {
	type shadow MatrixConfig
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r MatrixConfig) MarshalJSON() ([]byte, error) {
	type shadow MatrixConfig
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type MatrixValue struct {
	// One value per dimension. A nil entry matches events without that property.
	DimensionValues []*string       `json:"dimension_values,required"`
	UnitAmount      decimal.Decimal `json:"unit_amount,required"`
	JSON            apijson.Fields  `json:"-"`
}

func (r *MatrixValue) UnmarshalJSON(data []byte) error {
	type shadow MatrixValue
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r MatrixValue) MarshalJSON() ([]byte, error) {
	type shadow MatrixValue
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// TieredPrice charges each unit at the rate of the tier it falls in.
type TieredPrice struct {
	PriceBase
	TieredConfig TieredConfig   `json:"tiered_config,required"`
	ModelType    string         `json:"model_type,required" validate:"eq=tiered"`
	JSON         apijson.Fields `json:"-"`
}

func (r *TieredPrice) UnmarshalJSON(data []byte) error {
	type shadow TieredPrice
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r TieredPrice) MarshalJSON() ([]byte, error) {
	type shadow TieredPrice
	r.ModelType = "tiered"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// BulkPrice charges every unit at the rate of the tier the total falls in.
type BulkPrice struct {
	PriceBase
	BulkConfig BulkConfig     `json:"bulk_config,required"`
	ModelType  string         `json:"model_type,required" validate:"eq=bulk"`
	JSON       apijson.Fields `json:"-"`
}

func (r *BulkPrice) UnmarshalJSON(data []byte) error {
	type shadow BulkPrice
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r BulkPrice) MarshalJSON() ([]byte, error) {
	type shadow BulkPrice
	r.ModelType = "bulk"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type BulkConfig struct {
	Tiers []BulkTier     `json:"tiers,required" validate:"min=1"`
	JSON  apijson.Fields `json:"-"`
}

func (r *BulkConfig) UnmarshalJSON(data []byte) error {
	type shadow BulkConfig
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r BulkConfig) MarshalJSON() ([]byte, error) {
	type shadow BulkConfig
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// BulkTier applies UnitAmount when the total is at most MaximumUnits.
// A nil MaximumUnits is unbounded.
type BulkTier struct {
	MaximumUnits *float64        `json:"maximum_units"`
	UnitAmount   decimal.Decimal `json:"unit_amount,required"`
	JSON         apijson.Fields  `json:"-"`
}

func (r *BulkTier) UnmarshalJSON(data []byte) error {
	type shadow BulkTier
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r BulkTier) MarshalJSON() ([]byte, error) {
	type shadow BulkTier
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// UnknownPrice holds a price whose model_type this package does not know.
// It encodes back to Raw unchanged.
type UnknownPrice struct {
	Raw json.RawMessage `json:"-"`
}

// ModelType returns the model_type of the raw price, if it has one.
func (r UnknownPrice) ModelType() string {
	return gjson.GetBytes(r.Raw, "model_type").String()
}

func (r UnknownPrice) MarshalJSON() ([]byte, error) {
	if len(bytes.TrimSpace(r.Raw)) == 0 {
		return []byte("null"), nil
	}
	return r.Raw, nil
}

// NewPrice is the body that creates a price. It is one of [NewUnitPrice],
// [NewPackagePrice], [NewMatrixPrice], [NewTieredPrice] or [NewBulkPrice].
type NewPrice struct {
	variant newPriceVariant
}

type newPriceVariant interface{ implNewPrice() }

func (NewUnitPrice) implNewPrice()    {}
func (NewPackagePrice) implNewPrice() {}
func (NewMatrixPrice) implNewPrice()  {}
func (NewTieredPrice) implNewPrice()  {}
func (NewBulkPrice) implNewPrice()    {}

var newPriceUnion = apijson.NewUnion("NewPrice", "model_type",
	apijson.Variant[NewUnitPrice, newPriceVariant]("unit"),
	apijson.Variant[NewPackagePrice, newPriceVariant]("package"),
	apijson.Variant[NewMatrixPrice, newPriceVariant]("matrix"),
	apijson.Variant[NewTieredPrice, newPriceVariant]("tiered"),
	apijson.Variant[NewBulkPrice, newPriceVariant]("bulk"),
)

func NewPriceFromUnit(v NewUnitPrice) NewPrice       { return NewPrice{variant: v} }
func NewPriceFromPackage(v NewPackagePrice) NewPrice { return NewPrice{variant: v} }
func NewPriceFromMatrix(v NewMatrixPrice) NewPrice   { return NewPrice{variant: v} }
func NewPriceFromTiered(v NewTieredPrice) NewPrice   { return NewPrice{variant: v} }
func NewPriceFromBulk(v NewBulkPrice) NewPrice       { return NewPrice{variant: v} }

func (r NewPrice) Variant() any {
	if r.variant == nil {
		return nil
	}
	return r.variant
}

func (r *NewPrice) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := newPriceUnion.Decode(data)
	if err != nil {
		return err
	}
	r.variant = v
	return nil
}

func (r NewPrice) MarshalJSON() ([]byte, error) {
	if r.variant == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.variant)
}

// NewPriceBase holds the body fields shared by every price model.
type NewPriceBase struct {
	Cadence                   string                           `json:"cadence,required" validate:"oneof=one_time monthly quarterly semi_annual annual custom"`
	Currency                  string                           `json:"currency,required"`
	ItemID                    string                           `json:"item_id,required"`
	Name                      string                           `json:"name,required"`
	BillableMetricID          Field[string]                    `json:"billable_metric_id,omitzero"`
	BilledInAdvance           Field[bool]                      `json:"billed_in_advance,omitzero"`
	BillingCycleConfiguration Field[BillingCycleConfiguration] `json:"billing_cycle_configuration,omitzero"`
	ConversionRate            Field[float64]                   `json:"conversion_rate,omitzero"`
	ConversionRateConfig      Field[ConversionRateConfig]      `json:"conversion_rate_config,omitzero"`
	ExternalPriceID           Field[string]                    `json:"external_price_id,omitzero"`
	FixedPriceQuantity        Field[float64]                   `json:"fixed_price_quantity,omitzero"`
	InvoiceGroupingKey        Field[string]                    `json:"invoice_grouping_key,omitzero"`
	Metadata                  Field[map[string]*string]        `json:"metadata,omitzero"`
}

type NewUnitPrice struct {
	NewPriceBase
	UnitConfig UnitConfig `json:"unit_config,required"`
	ModelType  string     `json:"model_type"`
}

func (r NewUnitPrice) MarshalJSON() ([]byte, error) {
	type shadow NewUnitPrice
	r.ModelType = "unit"
	return json.Marshal((shadow)(r))
}

type NewPackagePrice struct {
	NewPriceBase
	PackageConfig PackageConfig `json:"package_config,required"`
	ModelType     string        `json:"model_type"`
}

func (r NewPackagePrice) MarshalJSON() ([]byte, error) {
	type shadow NewPackagePrice
	r.ModelType = "package"
	return json.Marshal((shadow)(r))
}

type NewMatrixPrice struct {
	NewPriceBase
	MatrixConfig MatrixConfig `json:"matrix_config,required"`
	ModelType    string       `json:"model_type"`
}

func (r NewMatrixPrice) MarshalJSON() ([]byte, error) {
	type shadow NewMatrixPrice
	r.ModelType = "matrix"
	return json.Marshal((shadow)(r))
}

type NewTieredPrice struct {
	NewPriceBase
	TieredConfig TieredConfig `json:"tiered_config,required"`
	ModelType    string       `json:"model_type"`
}

func (r NewTieredPrice) MarshalJSON() ([]byte, error) {
	type shadow NewTieredPrice
	r.ModelType = "tiered"
	return json.Marshal((shadow)(r))
}

type NewBulkPrice struct {
	NewPriceBase
	BulkConfig BulkConfig `json:"bulk_config,required"`
	ModelType  string     `json:"model_type"`
}

func (r NewBulkPrice) MarshalJSON() ([]byte, error) {
	type shadow NewBulkPrice
	r.ModelType = "bulk"
	return json.Marshal((shadow)(r))
}

type PriceUpdateParams struct {
	// Setting Metadata to null clears it. Individual keys set to null are removed.
	Metadata Field[map[string]*string] `json:"metadata,omitzero"`
}

type PriceListParams struct {
	Cursor *string `query:"cursor,omitempty"`
	Limit  *int64  `query:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
}

func (r PriceListParams) URLQuery() (url.Values, error) { return apiquery.Marshal(r) }

func (r PriceListParams) withCursor(cursor string) PriceListParams {
	r.Cursor = &cursor
	return r
}

type PriceEvaluateParams struct {
	TimeframeStart     time.Time     `json:"timeframe_start,required"`
	TimeframeEnd       time.Time     `json:"timeframe_end,required" validate:"gtfield=TimeframeStart"`
	CustomerID         Field[string] `json:"customer_id,omitzero"`
	ExternalCustomerID Field[string] `json:"external_customer_id,omitzero"`
	// Filter is a SQL-like expression over event properties.
	Filter       Field[string]   `json:"filter,omitzero"`
	GroupingKeys Field[[]string] `json:"grouping_keys,omitzero"`
}

type PriceEvaluateResponse struct {
	Data []EvaluatePriceGroup `json:"data,required"`
	JSON apijson.Fields       `json:"-"`
}

func (r *PriceEvaluateResponse) UnmarshalJSON(data []byte) error {
	type shadow PriceEvaluateResponse
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r PriceEvaluateResponse) MarshalJSON() ([]byte, error) {
	type shadow PriceEvaluateResponse
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// EvaluatePriceGroup is the charge for one combination of grouping values.
type EvaluatePriceGroup struct {
	Amount         decimal.Decimal `json:"amount,required"`
	GroupingValues []GroupingValue `json:"grouping_values,required"`
	Quantity       float64         `json:"quantity,required"`
	JSON           apijson.Fields  `json:"-"`
}

func (r *EvaluatePriceGroup) UnmarshalJSON(data []byte) error {
	type shadow EvaluatePriceGroup
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r EvaluatePriceGroup) MarshalJSON() ([]byte, error) {
	type shadow EvaluatePriceGroup
	return apijson.Marshal((*shadow)(&r), r.JSON)
}
