package orb

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/broady/orb/internal/apijson"
)

// Discount is one of [PercentageDiscount], [AmountDiscount], [TrialDiscount]
// or [UsageDiscount], chosen by discount_type.
type Discount struct {
	variant discountVariant
}

type discountVariant interface{ implDiscount() }

func (PercentageDiscount) implDiscount() {}
func (AmountDiscount) implDiscount()     {}
func (TrialDiscount) implDiscount()      {}
func (UsageDiscount) implDiscount()      {}

var discountUnion = apijson.NewUnion("Discount", "discount_type",
	apijson.Variant[PercentageDiscount, discountVariant]("percentage"),
	apijson.Variant[AmountDiscount, discountVariant]("amount"),
	apijson.Variant[TrialDiscount, discountVariant]("trial"),
	apijson.Variant[UsageDiscount, discountVariant]("usage"),
)

func NewDiscountFromPercentage(v PercentageDiscount) Discount { return Discount{variant: v} }
func NewDiscountFromAmount(v AmountDiscount) Discount         { return Discount{variant: v} }
func NewDiscountFromTrial(v TrialDiscount) Discount           { return Discount{variant: v} }
func NewDiscountFromUsage(v UsageDiscount) Discount           { return Discount{variant: v} }

// Variant returns the active variant, or nil for an unset Discount.
func (r Discount) Variant() any {
	if r.variant == nil {
		return nil
	}
	return r.variant
}

func (r Discount) AsPercentage() (v PercentageDiscount, ok bool) {
	v, ok = r.variant.(PercentageDiscount)
	return
}

func (r Discount) AsAmount() (v AmountDiscount, ok bool) {
	v, ok = r.variant.(AmountDiscount)
	return
}

func (r Discount) AsTrial() (v TrialDiscount, ok bool) {
	v, ok = r.variant.(TrialDiscount)
	return
}

func (r Discount) AsUsage() (v UsageDiscount, ok bool) {
	v, ok = r.variant.(UsageDiscount)
	return
}

func (r *Discount) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := discountUnion.Decode(data)
	if err != nil {
		return err
	}
	r.variant = v
	return nil
}

func (r Discount) MarshalJSON() ([]byte, error) {
	if r.variant == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.variant)
}

type PercentageDiscount struct {
	// Between 0 and 1.
	PercentageDiscount float64        `json:"percentage_discount,required" validate:"gte=0,lte=1"`
	AppliesToPriceIDs  []string       `json:"applies_to_price_ids"`
	Reason             *string        `json:"reason"`
	DiscountType       string         `json:"discount_type,required" validate:"eq=percentage"`
	JSON               apijson.Fields `json:"-"`
}

func (r *PercentageDiscount) UnmarshalJSON(data []byte) error {
	type shadow PercentageDiscount
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r PercentageDiscount) MarshalJSON() ([]byte, error) {
	type shadow PercentageDiscount
	r.DiscountType = "percentage"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type AmountDiscount struct {
	AmountDiscount    decimal.Decimal `json:"amount_discount,required"`
	AppliesToPriceIDs []string        `json:"applies_to_price_ids"`
	Reason            *string         `json:"reason"`
	DiscountType      string          `json:"discount_type,required" validate:"eq=amount"`
	JSON              apijson.Fields  `json:"-"`
}

func (r *AmountDiscount) UnmarshalJSON(data []byte) error {
	type shadow AmountDiscount
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r AmountDiscount) MarshalJSON() ([]byte, error) {
	type shadow AmountDiscount
	r.DiscountType = "amount"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type TrialDiscount struct {
	AppliesToPriceIDs       []string         `json:"applies_to_price_ids"`
	Reason                  *string          `json:"reason"`
	TrialAmountDiscount     *decimal.Decimal `json:"trial_amount_discount"`
	TrialPercentageDiscount *float64         `json:"trial_percentage_discount"`
	DiscountType            string           `json:"discount_type,required" validate:"eq=trial"`
	JSON                    apijson.Fields   `json:"-"`
}

func (r *TrialDiscount) UnmarshalJSON(data []byte) error {
	type shadow TrialDiscount
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r TrialDiscount) MarshalJSON() ([]byte, error) {
	type shadow TrialDiscount
	r.DiscountType = "trial"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type UsageDiscount struct {
	// Number of usage units the discount covers.
	UsageDiscount     float64        `json:"usage_discount,required" validate:"gte=0"`
	AppliesToPriceIDs []string       `json:"applies_to_price_ids"`
	Reason            *string        `json:"reason"`
	DiscountType      string         `json:"discount_type,required" validate:"eq=usage"`
	JSON              apijson.Fields `json:"-"`
}

func (r *UsageDiscount) UnmarshalJSON(data []byte) error {
	type shadow UsageDiscount
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r UsageDiscount) MarshalJSON() ([]byte, error) {
	type shadow UsageDiscount
	r.DiscountType = "usage"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// Adjustment changes the amount of an invoice line item. It is one of
// [UsageDiscountAdjustment], [AmountDiscountAdjustment],
// [PercentageDiscountAdjustment], [MinimumAdjustment] or [MaximumAdjustment],
// chosen by adjustment_type.
type Adjustment struct {
	variant adjustmentVariant
}

type adjustmentVariant interface{ implAdjustment() }

func (UsageDiscountAdjustment) implAdjustment()      {}
func (AmountDiscountAdjustment) implAdjustment()     {}
func (PercentageDiscountAdjustment) implAdjustment() {}
func (MinimumAdjustment) implAdjustment()            {}
func (MaximumAdjustment) implAdjustment()            {}

var adjustmentUnion = apijson.NewUnion("Adjustment", "adjustment_type",
	apijson.Variant[UsageDiscountAdjustment, adjustmentVariant]("usage_discount"),
	apijson.Variant[AmountDiscountAdjustment, adjustmentVariant]("amount_discount"),
	apijson.Variant[PercentageDiscountAdjustment, adjustmentVariant]("percentage_discount"),
	apijson.Variant[MinimumAdjustment, adjustmentVariant]("minimum"),
	apijson.Variant[MaximumAdjustment, adjustmentVariant]("maximum"),
)

func NewAdjustmentFromUsageDiscount(v UsageDiscountAdjustment) Adjustment {
	return Adjustment{variant: v}
}

func NewAdjustmentFromAmountDiscount(v AmountDiscountAdjustment) Adjustment {
	return Adjustment{variant: v}
}

func NewAdjustmentFromPercentageDiscount(v PercentageDiscountAdjustment) Adjustment {
	return Adjustment{variant: v}
}

func NewAdjustmentFromMinimum(v MinimumAdjustment) Adjustment { return Adjustment{variant: v} }
func NewAdjustmentFromMaximum(v MaximumAdjustment) Adjustment { return Adjustment{variant: v} }

func (r Adjustment) Variant() any {
	if r.variant == nil {
		return nil
	}
	return r.variant
}

func (r Adjustment) AsUsageDiscount() (v UsageDiscountAdjustment, ok bool) {
	v, ok = r.variant.(UsageDiscountAdjustment)
	return
}

func (r Adjustment) AsAmountDiscount() (v AmountDiscountAdjustment, ok bool) {
	v, ok = r.variant.(AmountDiscountAdjustment)
	return
}

func (r Adjustment) AsPercentageDiscount() (v PercentageDiscountAdjustment, ok bool) {
	v, ok = r.variant.(PercentageDiscountAdjustment)
	return
}

func (r Adjustment) AsMinimum() (v MinimumAdjustment, ok bool) {
	v, ok = r.variant.(MinimumAdjustment)
	return
}

func (r Adjustment) AsMaximum() (v MaximumAdjustment, ok bool) {
	v, ok = r.variant.(MaximumAdjustment)
	return
}

func (r *Adjustment) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := adjustmentUnion.Decode(data)
	if err != nil {
		return err
	}
	r.variant = v
	return nil
}

func (r Adjustment) MarshalJSON() ([]byte, error) {
	if r.variant == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.variant)
}

// AdjustmentBase holds the fields every adjustment carries.
type AdjustmentBase struct {
	ID                string   `json:"id,required"`
	AppliesToPriceIDs []string `json:"applies_to_price_ids,required"`
	IsInvoiceLevel    bool     `json:"is_invoice_level"`
	Reason            *string  `json:"reason"`
	// Amount is how much the adjustment changed the line item.
	Amount decimal.Decimal `json:"amount"`
}

type UsageDiscountAdjustment struct {
	AdjustmentBase
	UsageDiscount  float64        `json:"usage_discount,required"`
	AdjustmentType string         `json:"adjustment_type,required" validate:"eq=usage_discount"`
	JSON           apijson.Fields `json:"-"`
}

func (r *UsageDiscountAdjustment) UnmarshalJSON(data []byte) error {
	type shadow UsageDiscountAdjustment
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r UsageDiscountAdjustment) MarshalJSON() ([]byte, error) {
	type shadow UsageDiscountAdjustment
	r.AdjustmentType = "usage_discount"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type AmountDiscountAdjustment struct {
	AdjustmentBase
	AmountDiscount decimal.Decimal `json:"amount_discount,required"`
	AdjustmentType string          `json:"adjustment_type,required" validate:"eq=amount_discount"`
	JSON           apijson.Fields  `json:"-"`
}

func (r *AmountDiscountAdjustment) UnmarshalJSON(data []byte) error {
	type shadow AmountDiscountAdjustment
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r AmountDiscountAdjustment) MarshalJSON() ([]byte, error) {
	type shadow AmountDiscountAdjustment
	r.AdjustmentType = "amount_discount"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type PercentageDiscountAdjustment struct {
	AdjustmentBase
	PercentageDiscount float64        `json:"percentage_discount,required" validate:"gte=0,lte=1"`
	AdjustmentType     string         `json:"adjustment_type,required" validate:"eq=percentage_discount"`
	JSON               apijson.Fields `json:"-"`
}

func (r *PercentageDiscountAdjustment) UnmarshalJSON(data []byte) error {
	type shadow PercentageDiscountAdjustment
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r PercentageDiscountAdjustment) MarshalJSON() ([]byte, error) {
	type shadow PercentageDiscountAdjustment
	r.AdjustmentType = "percentage_discount"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type MinimumAdjustment struct {
	AdjustmentBase
	MinimumAmount decimal.Decimal `json:"minimum_amount,required"`
	// ItemID is the item the minimum is billed to.
	ItemID         string         `json:"item_id,required"`
	AdjustmentType string         `json:"adjustment_type,required" validate:"eq=minimum"`
	JSON           apijson.Fields `json:"-"`
}

func (r *MinimumAdjustment) UnmarshalJSON(data []byte) error {
	type shadow MinimumAdjustment
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r MinimumAdjustment) MarshalJSON() ([]byte, error) {
	type shadow MinimumAdjustment
	r.AdjustmentType = "minimum"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type MaximumAdjustment struct {
	AdjustmentBase
	MaximumAmount  decimal.Decimal `json:"maximum_amount,required"`
	AdjustmentType string          `json:"adjustment_type,required" validate:"eq=maximum"`
	JSON           apijson.Fields  `json:"-"`
}

func (r *MaximumAdjustment) UnmarshalJSON(data []byte) error {
	type shadow MaximumAdjustment
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r MaximumAdjustment) MarshalJSON() ([]byte, error) {
	type shadow MaximumAdjustment
	r.AdjustmentType = "maximum"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// ConversionRateConfig converts a price from its currency into the invoicing
// currency. It is one of [UnitConversionRateConfig] or
// [TieredConversionRateConfig], chosen by conversion_rate_type.
type ConversionRateConfig struct {
	variant conversionRateConfigVariant
}

type conversionRateConfigVariant interface{ implConversionRateConfig() }

func (UnitConversionRateConfig) implConversionRateConfig()   {}
func (TieredConversionRateConfig) implConversionRateConfig() {}

var conversionRateConfigUnion = apijson.NewUnion("ConversionRateConfig", "conversion_rate_type",
	apijson.Variant[UnitConversionRateConfig, conversionRateConfigVariant]("unit"),
	apijson.Variant[TieredConversionRateConfig, conversionRateConfigVariant]("tiered"),
)

func NewConversionRateConfigFromUnit(v UnitConversionRateConfig) ConversionRateConfig {
	return ConversionRateConfig{variant: v}
}

func NewConversionRateConfigFromTiered(v TieredConversionRateConfig) ConversionRateConfig {
	return ConversionRateConfig{variant: v}
}

func (r ConversionRateConfig) Variant() any {
	if r.variant == nil {
		return nil
	}
	return r.variant
}

func (r ConversionRateConfig) AsUnit() (v UnitConversionRateConfig, ok bool) {
	v, ok = r.variant.(UnitConversionRateConfig)
	return
}

func (r ConversionRateConfig) AsTiered() (v TieredConversionRateConfig, ok bool) {
	v, ok = r.variant.(TieredConversionRateConfig)
	return
}

func (r *ConversionRateConfig) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := conversionRateConfigUnion.Decode(data)
	if err != nil {
		return err
	}
	r.variant = v
	return nil
}

func (r ConversionRateConfig) MarshalJSON() ([]byte, error) {
	if r.variant == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.variant)
}

type UnitConversionRateConfig struct {
	UnitConfig         ConversionRateUnitConfig `json:"unit_config,required"`
	ConversionRateType string                   `json:"conversion_rate_type,required" validate:"eq=unit"`
	JSON               apijson.Fields           `json:"-"`
}

func (r *UnitConversionRateConfig) UnmarshalJSON(data []byte) error {
	type shadow UnitConversionRateConfig
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r UnitConversionRateConfig) MarshalJSON() ([]byte, error) {
	type shadow UnitConversionRateConfig
	r.ConversionRateType = "unit"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type ConversionRateUnitConfig struct {
	UnitAmount decimal.Decimal `json:"unit_amount,required"`
	JSON       apijson.Fields  `json:"-"`
}

func (r *ConversionRateUnitConfig) UnmarshalJSON(data []byte) error {
	type shadow ConversionRateUnitConfig
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r ConversionRateUnitConfig) MarshalJSON() ([]byte, error) {
	type shadow ConversionRateUnitConfig
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type TieredConversionRateConfig struct {
	TieredConfig       TieredConfig   `json:"tiered_config,required"`
	ConversionRateType string         `json:"conversion_rate_type,required" validate:"eq=tiered"`
	JSON               apijson.Fields `json:"-"`
}

func (r *TieredConversionRateConfig) UnmarshalJSON(data []byte) error {
	type shadow TieredConversionRateConfig
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r TieredConversionRateConfig) MarshalJSON() ([]byte, error) {
	type shadow TieredConversionRateConfig
	r.ConversionRateType = "tiered"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type TieredConfig struct {
	Tiers []Tier         `json:"tiers,required"`
	JSON  apijson.Fields `json:"-"`
}

func (r *TieredConfig) UnmarshalJSON(data []byte) error {
	type shadow TieredConfig
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r TieredConfig) MarshalJSON() ([]byte, error) {
	type shadow TieredConfig
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// Tier prices the units from FirstUnit up to LastUnit. A nil LastUnit is unbounded.
type Tier struct {
	FirstUnit  float64         `json:"first_unit,required" validate:"gte=0"`
	LastUnit   *float64        `json:"last_unit"`
	UnitAmount decimal.Decimal `json:"unit_amount,required"`
	JSON       apijson.Fields  `json:"-"`
}

func (r *Tier) UnmarshalJSON(data []byte) error {
	type shadow Tier
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r Tier) MarshalJSON() ([]byte, error) {
	type shadow Tier
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// DateOrDateTime holds either a full timestamp or a calendar date. Decoding
// tries a timestamp first, then a date.
type DateOrDateTime struct {
	value any // time.Time or Date
}

var dateOrDateTimeTrial = apijson.TryEach("DateOrDateTime",
	apijson.Try("datetime", NewDateTime),
	apijson.Try("date", NewDate),
)

func NewDateTime(t time.Time) DateOrDateTime { return DateOrDateTime{value: t} }
func NewDate(d Date) DateOrDateTime          { return DateOrDateTime{value: d} }

func (r DateOrDateTime) Variant() any { return r.value }

func (r DateOrDateTime) AsDateTime() (v time.Time, ok bool) {
	v, ok = r.value.(time.Time)
	return
}

func (r DateOrDateTime) AsDate() (v Date, ok bool) {
	v, ok = r.value.(Date)
	return
}

func (r *DateOrDateTime) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := dateOrDateTimeTrial.Decode(data)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (r DateOrDateTime) MarshalJSON() ([]byte, error) {
	if r.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// GroupingValue is the value of a grouping key: a string, a number or a boolean.
type GroupingValue struct {
	value any // string, float64 or bool
}

var groupingValueTrial = apijson.TryEach("GroupingValue",
	apijson.Try("string", NewGroupingValueFromString),
	apijson.Try("number", NewGroupingValueFromFloat),
	apijson.Try("bool", NewGroupingValueFromBool),
)

func NewGroupingValueFromString(v string) GroupingValue { return GroupingValue{value: v} }
func NewGroupingValueFromFloat(v float64) GroupingValue { return GroupingValue{value: v} }
func NewGroupingValueFromBool(v bool) GroupingValue     { return GroupingValue{value: v} }

func (r GroupingValue) Variant() any { return r.value }

func (r GroupingValue) AsString() (v string, ok bool) {
	v, ok = r.value.(string)
	return
}

func (r GroupingValue) AsFloat() (v float64, ok bool) {
	v, ok = r.value.(float64)
	return
}

func (r GroupingValue) AsBool() (v bool, ok bool) {
	v, ok = r.value.(bool)
	return
}

func (r *GroupingValue) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := groupingValueTrial.Decode(data)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (r GroupingValue) MarshalJSON() ([]byte, error) {
	if r.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// Address is a postal address.
type Address struct {
	City       *string        `json:"city"`
	Country    *string        `json:"country"`
	Line1      *string        `json:"line1"`
	Line2      *string        `json:"line2"`
	PostalCode *string        `json:"postal_code"`
	State      *string        `json:"state"`
	JSON       apijson.Fields `json:"-"`
}

func (r *Address) UnmarshalJSON(data []byte) error {
	type shadow Address
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r Address) MarshalJSON() ([]byte, error) {
	type shadow Address
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// AddressParam sets a postal address. Unset fields are left out.
type AddressParam struct {
	City       Field[string] `json:"city,omitzero"`
	Country    Field[string] `json:"country,omitzero"`
	Line1      Field[string] `json:"line1,omitzero"`
	Line2      Field[string] `json:"line2,omitzero"`
	PostalCode Field[string] `json:"postal_code,omitzero"`
	State      Field[string] `json:"state,omitzero"`
}

// BillingCycleConfiguration is how often a price is billed.
type BillingCycleConfiguration struct {
	Duration     int64          `json:"duration,required"`
	DurationUnit string         `json:"duration_unit,required" validate:"oneof=day month"`
	JSON         apijson.Fields `json:"-"`
}

func (r *BillingCycleConfiguration) UnmarshalJSON(data []byte) error {
	type shadow BillingCycleConfiguration
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r BillingCycleConfiguration) MarshalJSON() ([]byte, error) {
	type shadow BillingCycleConfiguration
	return apijson.Marshal((*shadow)(&r), r.JSON)
}
