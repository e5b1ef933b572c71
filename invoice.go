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

// InvoiceService manages invoices. Subscription invoices are created by Orb;
// New creates one-off invoices.
type InvoiceService struct {
	Options []option.RequestOption
}

func NewInvoiceService(opts ...option.RequestOption) (r InvoiceService) {
	r = InvoiceService{}
	r.Options = opts
	return
}

func (r *InvoiceService) New(ctx context.Context, body InvoiceNewParams, opts ...option.RequestOption) (res *Invoice, err error) {
	opts = slices.Concat(r.Options, opts)
	path := "invoices"
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

// Update changes metadata, due date and net terms. Only draft invoices accept
// a new due date.
func (r *InvoiceService) Update(ctx context.Context, invoiceID string, body InvoiceUpdateParams, opts ...option.RequestOption) (res *Invoice, err error) {
	opts = slices.Concat(r.Options, opts)
	if invoiceID == "" {
		err = errors.New("missing required invoice_id parameter")
		return
	}
	path := fmt.Sprintf("invoices/%s", url.PathEscape(invoiceID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPut, path, body, &res, opts...)
	return
}

func (r *InvoiceService) List(ctx context.Context, query InvoiceListParams, opts ...option.RequestOption) (*Page[Invoice], error) {
	opts = slices.Concat(r.Options, opts)
	return getPage[Invoice](ctx, "invoices", query, opts)
}

func (r *InvoiceService) Fetch(ctx context.Context, invoiceID string, opts ...option.RequestOption) (res *Invoice, err error) {
	opts = slices.Concat(r.Options, opts)
	if invoiceID == "" {
		err = errors.New("missing required invoice_id parameter")
		return
	}
	path := fmt.Sprintf("invoices/%s", url.PathEscape(invoiceID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...)
	return
}

// FetchUpcoming returns the invoice that will be issued at the end of the
// subscription's current billing period.
func (r *InvoiceService) FetchUpcoming(ctx context.Context, query InvoiceFetchUpcomingParams, opts ...option.RequestOption) (res *Invoice, err error) {
	opts = slices.Concat(r.Options, opts)
	path := "invoices/upcoming"
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, query, &res, opts...)
	return
}

// Issue moves a draft invoice to issued.
func (r *InvoiceService) Issue(ctx context.Context, invoiceID string, body InvoiceIssueParams, opts ...option.RequestOption) (res *Invoice, err error) {
	opts = slices.Concat(r.Options, opts)
	if invoiceID == "" {
		err = errors.New("missing required invoice_id parameter")
		return
	}
	path := fmt.Sprintf("invoices/%s/issue", url.PathEscape(invoiceID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

// MarkPaid records a payment made outside Orb.
func (r *InvoiceService) MarkPaid(ctx context.Context, invoiceID string, body InvoiceMarkPaidParams, opts ...option.RequestOption) (res *Invoice, err error) {
	opts = slices.Concat(r.Options, opts)
	if invoiceID == "" {
		err = errors.New("missing required invoice_id parameter")
		return
	}
	path := fmt.Sprintf("invoices/%s/mark_paid", url.PathEscape(invoiceID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

func (r *InvoiceService) Void(ctx context.Context, invoiceID string, opts ...option.RequestOption) (res *Invoice, err error) {
	opts = slices.Concat(r.Options, opts)
	if invoiceID == "" {
		err = errors.New("missing required invoice_id parameter")
		return
	}
	path := fmt.Sprintf("invoices/%s/void", url.PathEscape(invoiceID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, nil, &res, opts...)
	return
}

type Invoice struct {
	ID               string                `json:"id,required"`
	InvoiceNumber    string                `json:"invoice_number,required"`
	Status           string                `json:"status,required" validate:"oneof=issued paid synced void draft"`
	InvoiceSource    string                `json:"invoice_source,required" validate:"oneof=subscription partial one_off"`
	Currency         string                `json:"currency,required"`
	Customer         CustomerRef           `json:"customer,required"`
	Subscription     *IDRef                `json:"subscription"`
	AmountDue        decimal.Decimal       `json:"amount_due,required"`
	Subtotal         decimal.Decimal       `json:"subtotal,required"`
	Total            decimal.Decimal       `json:"total,required"`
	CreatedAt        time.Time             `json:"created_at,required"`
	InvoiceDate      time.Time             `json:"invoice_date,required"`
	DueDate          *time.Time            `json:"due_date"`
	IssuedAt         *time.Time            `json:"issued_at"`
	PaidAt           *time.Time            `json:"paid_at"`
	VoidedAt         *time.Time            `json:"voided_at"`
	InvoicePdf       *string               `json:"invoice_pdf"`
	HostedInvoiceURL *string               `json:"hosted_invoice_url"`
	Memo             *string               `json:"memo"`
	WillAutoIssue    bool                  `json:"will_auto_issue,required"`
	AutoCollection   InvoiceAutoCollection `json:"auto_collection,required"`
	LineItems        []InvoiceLineItem     `json:"line_items,required"`
	Metadata         map[string]string     `json:"metadata,required"`
	JSON             apijson.Fields        `json:"-"`
}

func (r *Invoice) UnmarshalJSON(data []byte) error {
	type shadow Invoice
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r Invoice) MarshalJSON() ([]byte, error) {
	type shadow Invoice
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// Validate checks the invoice strictly. See [option.WithResponseValidation].
func (r *Invoice) Validate() error { return apijson.Validate(r) }

type InvoiceAutoCollection struct {
	Enabled       *bool          `json:"enabled"`
	NextAttemptAt *time.Time     `json:"next_attempt_at"`
	NumAttempts   *int64         `json:"num_attempts"`
	JSON          apijson.Fields `json:"-"`
}

func (r *InvoiceAutoCollection) UnmarshalJSON(data []byte) error {
	type shadow InvoiceAutoCollection
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r InvoiceAutoCollection) MarshalJSON() ([]byte, error) {
	type shadow InvoiceAutoCollection
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type InvoiceLineItem struct {
	ID               string          `json:"id,required"`
	Name             string          `json:"name,required"`
	Amount           decimal.Decimal `json:"amount,required"`
	AdjustedSubtotal decimal.Decimal `json:"adjusted_subtotal,required"`
	CreditsApplied   decimal.Decimal `json:"credits_applied,required"`
	Subtotal         decimal.Decimal `json:"subtotal,required"`
	Quantity         float64         `json:"quantity,required"`
	StartDate        time.Time       `json:"start_date,required"`
	EndDate          time.Time       `json:"end_date,required"`
	Grouping         *string         `json:"grouping"`
	Adjustments      []Adjustment    `json:"adjustments,required"`
	// Price is unset for line items with no backing price.
	Price        Price          `json:"price"`
	SubLineItems []SubLineItem  `json:"sub_line_items,required"`
	JSON         apijson.Fields `json:"-"`
}

func (r *InvoiceLineItem) UnmarshalJSON(data []byte) error {
	type shadow InvoiceLineItem
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r InvoiceLineItem) MarshalJSON() ([]byte, error) {
	type shadow InvoiceLineItem
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// SubLineItemTypeOther is the discriminator of [OtherSubLineItem]. The API
// sends the quotes as part of the value.
const SubLineItemTypeOther = "'null'"

// SubLineItem breaks a line item down by matrix cell or tier, dispatched on type.
type SubLineItem struct {
	variant subLineItemVariant
}

type subLineItemVariant interface{ implSubLineItem() }

func (MatrixSubLineItem) implSubLineItem() {}
func (TierSubLineItem) implSubLineItem()   {}
func (OtherSubLineItem) implSubLineItem()  {}

var subLineItemUnion = apijson.NewUnion("SubLineItem", "type",
	apijson.Variant[MatrixSubLineItem, subLineItemVariant]("matrix"),
	apijson.Variant[TierSubLineItem, subLineItemVariant]("tier"),
	apijson.Variant[OtherSubLineItem, subLineItemVariant](SubLineItemTypeOther),
)

func NewSubLineItemFromMatrix(v MatrixSubLineItem) SubLineItem { return SubLineItem{variant: v} }
func NewSubLineItemFromTier(v TierSubLineItem) SubLineItem     { return SubLineItem{variant: v} }
func NewSubLineItemFromOther(v OtherSubLineItem) SubLineItem   { return SubLineItem{variant: v} }

func (r SubLineItem) Variant() any {
	if r.variant == nil {
		return nil
	}
	return r.variant
}

func (r SubLineItem) AsMatrix() (v MatrixSubLineItem, ok bool) {
	v, ok = r.variant.(MatrixSubLineItem)
	return
}

func (r SubLineItem) AsTier() (v TierSubLineItem, ok bool) {
	v, ok = r.variant.(TierSubLineItem)
	return
}

func (r SubLineItem) AsOther() (v OtherSubLineItem, ok bool) {
	v, ok = r.variant.(OtherSubLineItem)
	return
}

func (r *SubLineItem) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := subLineItemUnion.Decode(data)
	if err != nil {
		return err
	}
	r.variant = v
	return nil
}

func (r SubLineItem) MarshalJSON() ([]byte, error) {
	if r.variant == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.variant)
}

type SubLineItemBase struct {
	Amount   decimal.Decimal      `json:"amount,required"`
	Name     string               `json:"name,required"`
	Quantity float64              `json:"quantity,required"`
	Grouping *SubLineItemGrouping `json:"grouping"`
	Type     string               `json:"type,required"`
}

type SubLineItemGrouping struct {
	Key   string         `json:"key,required"`
	Value *string        `json:"value"`
	JSON  apijson.Fields `json:"-"`
}

func (r *SubLineItemGrouping) UnmarshalJSON(data []byte) error {
	type shadow SubLineItemGrouping
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r SubLineItemGrouping) MarshalJSON() ([]byte, error) {
	type shadow SubLineItemGrouping
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type MatrixSubLineItem struct {
	SubLineItemBase
	MatrixConfig SubLineItemMatrixConfig `json:"matrix_config,required"`
	JSON         apijson.Fields          `json:"-"`
}

func (r *MatrixSubLineItem) UnmarshalJSON(data []byte) error {
	type shadow MatrixSubLineItem
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r MatrixSubLineItem) MarshalJSON() ([]byte, error) {
	type shadow MatrixSubLineItem
	r.Type = "matrix"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type SubLineItemMatrixConfig struct {
	DimensionValues []*string      `json:"dimension_values,required"`
	JSON            apijson.Fields `json:"-"`
}

func (r *SubLineItemMatrixConfig) UnmarshalJSON(data []byte) error {
	type shadow SubLineItemMatrixConfig
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r SubLineItemMatrixConfig) MarshalJSON() ([]byte, error) {
	type shadow SubLineItemMatrixConfig
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type TierSubLineItem struct {
	SubLineItemBase
	TierConfig SubLineItemTierConfig `json:"tier_config,required"`
	JSON       apijson.Fields        `json:"-"`
}

func (r *TierSubLineItem) UnmarshalJSON(data []byte) error {
	type shadow TierSubLineItem
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r TierSubLineItem) MarshalJSON() ([]byte, error) {
	type shadow TierSubLineItem
	r.Type = "tier"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type SubLineItemTierConfig struct {
	FirstUnit  float64         `json:"first_unit,required"`
	LastUnit   *float64        `json:"last_unit"`
	UnitAmount decimal.Decimal `json:"unit_amount,required"`
	JSON       apijson.Fields  `json:"-"`
}

func (r *SubLineItemTierConfig) UnmarshalJSON(data []byte) error {
	type shadow SubLineItemTierConfig
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r SubLineItemTierConfig) MarshalJSON() ([]byte, error) {
	type shadow SubLineItemTierConfig
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// OtherSubLineItem is a sub-line item with no matrix or tier breakdown. Its
// type is [SubLineItemTypeOther].
type OtherSubLineItem struct {
	SubLineItemBase
	JSON apijson.Fields `json:"-"`
}

func (r *OtherSubLineItem) UnmarshalJSON(data []byte) error {
	type shadow OtherSubLineItem
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r OtherSubLineItem) MarshalJSON() ([]byte, error) {
	type shadow OtherSubLineItem
	r.Type = SubLineItemTypeOther
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type InvoiceNewParams struct {
	Currency    string                     `json:"currency,required" validate:"len=3"`
	InvoiceDate time.Time                  `json:"invoice_date,required"`
	LineItems   []InvoiceNewParamsLineItem `json:"line_items,required" validate:"min=1"`
	// NetTerms is the number of days until the invoice is due. Zero means due
	// on issue.
	NetTerms           int64                     `json:"net_terms" validate:"gte=0"`
	CustomerID         Field[string]             `json:"customer_id,omitzero"`
	ExternalCustomerID Field[string]             `json:"external_customer_id,omitzero"`
	Memo               Field[string]             `json:"memo,omitzero"`
	WillAutoIssue      Field[bool]               `json:"will_auto_issue,omitzero"`
	Metadata           Field[map[string]*string] `json:"metadata,omitzero"`
}

type InvoiceNewParamsLineItem struct {
	Name       string     `json:"name,required"`
	ItemID     string     `json:"item_id,required"`
	Quantity   float64    `json:"quantity" validate:"gte=0"`
	StartDate  Date       `json:"start_date"`
	EndDate    Date       `json:"end_date"`
	ModelType  string     `json:"model_type"`
	UnitConfig UnitConfig `json:"unit_config"`
}

func (r InvoiceNewParamsLineItem) MarshalJSON() ([]byte, error) {
	type shadow InvoiceNewParamsLineItem
	r.ModelType = "unit"
	return json.Marshal(shadow(r))
}

type InvoiceUpdateParams struct {
	// DueDate set to null makes the invoice due on issue.
	DueDate  Field[DateOrDateTime]     `json:"due_date,omitzero"`
	NetTerms Field[int64]              `json:"net_terms,omitzero"`
	Metadata Field[map[string]*string] `json:"metadata,omitzero"`
}

type InvoiceListParams struct {
	Cursor             *string          `query:"cursor,omitempty"`
	Limit              *int64           `query:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
	CustomerID         *string          `query:"customer_id,omitempty"`
	ExternalCustomerID *string          `query:"external_customer_id,omitempty"`
	SubscriptionID     *string          `query:"subscription_id,omitempty"`
	Status             []string         `query:"status[],omitempty" validate:"dive,oneof=draft issued paid synced void"`
	IsRecurring        *bool            `query:"is_recurring,omitempty"`
	DateType           *string          `query:"date_type,omitempty" validate:"omitempty,oneof=due_date invoice_date"`
	DueDate            *Date            `query:"due_date,omitempty"`
	DueDateGt          *Date            `query:"due_date[gt],omitempty"`
	DueDateLt          *Date            `query:"due_date[lt],omitempty"`
	InvoiceDateGt      *time.Time       `query:"invoice_date[gt],omitempty"`
	InvoiceDateGte     *time.Time       `query:"invoice_date[gte],omitempty"`
	InvoiceDateLt      *time.Time       `query:"invoice_date[lt],omitempty"`
	InvoiceDateLte     *time.Time       `query:"invoice_date[lte],omitempty"`
	AmountGt           *decimal.Decimal `query:"amount[gt],omitempty"`
	AmountLt           *decimal.Decimal `query:"amount[lt],omitempty"`
}

func (r InvoiceListParams) URLQuery() (url.Values, error) { return apiquery.Marshal(r) }

func (r InvoiceListParams) withCursor(cursor string) InvoiceListParams {
	r.Cursor = &cursor
	return r
}

type InvoiceFetchUpcomingParams struct {
	SubscriptionID string `json:"subscription_id,required" query:"subscription_id"`
}

func (r InvoiceFetchUpcomingParams) URLQuery() (url.Values, error) { return apiquery.Marshal(r) }

type InvoiceIssueParams struct {
	// Synchronous waits for the payment provider sync before returning.
	Synchronous Field[bool] `json:"synchronous,omitzero"`
}

type InvoiceMarkPaidParams struct {
	PaymentReceivedDate Date          `json:"payment_received_date"`
	ExternalID          Field[string] `json:"external_id,omitzero"`
	Notes               Field[string] `json:"notes,omitzero"`
}
