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

	"github.com/broady/orb/internal/apijson"
	"github.com/broady/orb/internal/apiquery"
	"github.com/broady/orb/internal/requestconfig"
	"github.com/broady/orb/option"
)

// CustomerCreditService groups the prepaid credit endpoints of a customer.
type CustomerCreditService struct {
	Options []option.RequestOption
	Ledger  CustomerCreditLedgerService
}

func NewCustomerCreditService(opts ...option.RequestOption) (r CustomerCreditService) {
	r = CustomerCreditService{}
	r.Options = opts
	r.Ledger = NewCustomerCreditLedgerService(opts...)
	return
}

// CustomerCreditLedgerService reads and appends to a customer's credit ledger.
//
// The ledger is append-only. Every change to a credit balance, including
// usage deductions and block expiry, shows up as one [LedgerEntry].
type CustomerCreditLedgerService struct {
	Options []option.RequestOption
}

func NewCustomerCreditLedgerService(opts ...option.RequestOption) (r CustomerCreditLedgerService) {
	r = CustomerCreditLedgerService{}
	r.Options = opts
	return
}

// List returns ledger entries, most recent first.
func (r *CustomerCreditLedgerService) List(ctx context.Context, customerID string, query CustomerCreditLedgerListParams, opts ...option.RequestOption) (*Page[LedgerEntry], error) {
	opts = slices.Concat(r.Options, opts)
	if customerID == "" {
		return nil, errors.New("missing required customer_id parameter")
	}
	path := fmt.Sprintf("customers/%s/credits/ledger", url.PathEscape(customerID))
	return getPage[LedgerEntry](ctx, path, query, opts)
}

// NewEntry appends an entry to the ledger. The entry kind is chosen by the
// variant of body.
func (r *CustomerCreditLedgerService) NewEntry(ctx context.Context, customerID string, body NewLedgerEntry, opts ...option.RequestOption) (res *LedgerEntry, err error) {
	opts = slices.Concat(r.Options, opts)
	if customerID == "" {
		err = errors.New("missing required customer_id parameter")
		return
	}
	path := fmt.Sprintf("customers/%s/credits/ledger_entry", url.PathEscape(customerID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

// LedgerEntry is one credit ledger entry, dispatched on entry_type.
type LedgerEntry struct {
	variant ledgerEntryVariant
}

type ledgerEntryVariant interface{ implLedgerEntry() }

func (IncrementLedgerEntry) implLedgerEntry()         {}
func (DecrementLedgerEntry) implLedgerEntry()         {}
func (ExpirationChangeLedgerEntry) implLedgerEntry()  {}
func (CreditBlockExpiryLedgerEntry) implLedgerEntry() {}
func (VoidLedgerEntry) implLedgerEntry()              {}
func (VoidInitiatedLedgerEntry) implLedgerEntry()     {}
func (AmendmentLedgerEntry) implLedgerEntry()         {}

var ledgerEntryUnion = apijson.NewUnion("LedgerEntry", "entry_type",
	apijson.Variant[IncrementLedgerEntry, ledgerEntryVariant]("increment"),
	apijson.Variant[DecrementLedgerEntry, ledgerEntryVariant]("decrement"),
	apijson.Variant[ExpirationChangeLedgerEntry, ledgerEntryVariant]("expiration_change"),
	apijson.Variant[CreditBlockExpiryLedgerEntry, ledgerEntryVariant]("credit_block_expiry"),
	apijson.Variant[VoidLedgerEntry, ledgerEntryVariant]("void"),
	apijson.Variant[VoidInitiatedLedgerEntry, ledgerEntryVariant]("void_initiated"),
	apijson.Variant[AmendmentLedgerEntry, ledgerEntryVariant]("amendment"),
)

func (r LedgerEntry) Variant() any {
	if r.variant == nil {
		return nil
	}
	return r.variant
}

// Base returns the fields every ledger entry has. ok is false for an unset entry.
func (r LedgerEntry) Base() (base LedgerEntryBase, ok bool) {
	switch v := r.variant.(type) {
	case IncrementLedgerEntry:
		return v.LedgerEntryBase, true
	case DecrementLedgerEntry:
		return v.LedgerEntryBase, true
	case ExpirationChangeLedgerEntry:
		return v.LedgerEntryBase, true
	case CreditBlockExpiryLedgerEntry:
		return v.LedgerEntryBase, true
	case VoidLedgerEntry:
		return v.LedgerEntryBase, true
	case VoidInitiatedLedgerEntry:
		return v.LedgerEntryBase, true
	case AmendmentLedgerEntry:
		return v.LedgerEntryBase, true
	}
	return
}

func (r LedgerEntry) AsIncrement() (v IncrementLedgerEntry, ok bool) {
	v, ok = r.variant.(IncrementLedgerEntry)
	return
}

func (r LedgerEntry) AsDecrement() (v DecrementLedgerEntry, ok bool) {
	v, ok = r.variant.(DecrementLedgerEntry)
	return
}

func (r LedgerEntry) AsExpirationChange() (v ExpirationChangeLedgerEntry, ok bool) {
	v, ok = r.variant.(ExpirationChangeLedgerEntry)
	return
}

func (r LedgerEntry) AsCreditBlockExpiry() (v CreditBlockExpiryLedgerEntry, ok bool) {
	v, ok = r.variant.(CreditBlockExpiryLedgerEntry)
	return
}

func (r LedgerEntry) AsVoid() (v VoidLedgerEntry, ok bool) {
	v, ok = r.variant.(VoidLedgerEntry)
	return
}

func (r LedgerEntry) AsVoidInitiated() (v VoidInitiatedLedgerEntry, ok bool) {
	v, ok = r.variant.(VoidInitiatedLedgerEntry)
	return
}

func (r LedgerEntry) AsAmendment() (v AmendmentLedgerEntry, ok bool) {
	v, ok = r.variant.(AmendmentLedgerEntry)
	return
}

func (r *LedgerEntry) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := ledgerEntryUnion.Decode(data)
	if err != nil {
		return err
	}
	r.variant = v
	return nil
}

func (r LedgerEntry) MarshalJSON() ([]byte, error) {
	if r.variant == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.variant)
}

type LedgerEntryBase struct {
	ID                   string            `json:"id,required"`
	Amount               float64           `json:"amount,required"`
	CreatedAt            time.Time         `json:"created_at,required"`
	CreditBlock          CreditBlockRef    `json:"credit_block,required"`
	Currency             string            `json:"currency,required"`
	Customer             CustomerRef       `json:"customer,required"`
	Description          *string           `json:"description"`
	StartingBalance      float64           `json:"starting_balance,required"`
	EndingBalance        float64           `json:"ending_balance,required"`
	EntryStatus          string            `json:"entry_status,required" validate:"oneof=committed pending"`
	EntryType            string            `json:"entry_type,required"`
	LedgerSequenceNumber int64             `json:"ledger_sequence_number,required"`
	Metadata             map[string]string `json:"metadata,required"`
}

// CreditBlockRef identifies the credit block an entry applies to.
type CreditBlockRef struct {
	ID               string         `json:"id,required"`
	ExpiryDate       *time.Time     `json:"expiry_date"`
	PerUnitCostBasis *string        `json:"per_unit_cost_basis"`
	JSON             apijson.Fields `json:"-"`
}

func (r *CreditBlockRef) UnmarshalJSON(data []byte) error {
	type shadow CreditBlockRef
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r CreditBlockRef) MarshalJSON() ([]byte, error) {
	type shadow CreditBlockRef
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type CustomerRef struct {
	ID                 string         `json:"id,required"`
	ExternalCustomerID *string        `json:"external_customer_id"`
	JSON               apijson.Fields `json:"-"`
}

func (r *CustomerRef) UnmarshalJSON(data []byte) error {
	type shadow CustomerRef
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r CustomerRef) MarshalJSON() ([]byte, error) {
	type shadow CustomerRef
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type IncrementLedgerEntry struct {
	LedgerEntryBase
	JSON apijson.Fields `json:"-"`
}

func (r *IncrementLedgerEntry) UnmarshalJSON(data []byte) error {
	type shadow IncrementLedgerEntry
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r IncrementLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow IncrementLedgerEntry
	r.EntryType = "increment"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// DecrementLedgerEntry records credits drawn down, usually by usage on an invoice.
type DecrementLedgerEntry struct {
	LedgerEntryBase
	EventID   *string        `json:"event_id"`
	InvoiceID *string        `json:"invoice_id"`
	PriceID   *string        `json:"price_id"`
	JSON      apijson.Fields `json:"-"`
}

func (r *DecrementLedgerEntry) UnmarshalJSON(data []byte) error {
	type shadow DecrementLedgerEntry
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r DecrementLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow DecrementLedgerEntry
	r.EntryType = "decrement"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type ExpirationChangeLedgerEntry struct {
	LedgerEntryBase
	NewBlockExpiryDate *time.Time     `json:"new_block_expiry_date"`
	JSON               apijson.Fields `json:"-"`
}

func (r *ExpirationChangeLedgerEntry) UnmarshalJSON(data []byte) error {
	type shadow ExpirationChangeLedgerEntry
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r ExpirationChangeLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow ExpirationChangeLedgerEntry
	r.EntryType = "expiration_change"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type CreditBlockExpiryLedgerEntry struct {
	LedgerEntryBase
	JSON apijson.Fields `json:"-"`
}

func (r *CreditBlockExpiryLedgerEntry) UnmarshalJSON(data []byte) error {
	type shadow CreditBlockExpiryLedgerEntry
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r CreditBlockExpiryLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow CreditBlockExpiryLedgerEntry
	r.EntryType = "credit_block_expiry"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type VoidLedgerEntry struct {
	LedgerEntryBase
	VoidAmount float64        `json:"void_amount,required"`
	VoidReason *string        `json:"void_reason"`
	JSON       apijson.Fields `json:"-"`
}

func (r *VoidLedgerEntry) UnmarshalJSON(data []byte) error {
	type shadow VoidLedgerEntry
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r VoidLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow VoidLedgerEntry
	r.EntryType = "void"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// VoidInitiatedLedgerEntry is written when a void also moves the block's expiry.
type VoidInitiatedLedgerEntry struct {
	LedgerEntryBase
	NewBlockExpiryDate time.Time      `json:"new_block_expiry_date,required"`
	VoidAmount         float64        `json:"void_amount,required"`
	VoidReason         *string        `json:"void_reason"`
	JSON               apijson.Fields `json:"-"`
}

func (r *VoidInitiatedLedgerEntry) UnmarshalJSON(data []byte) error {
	type shadow VoidInitiatedLedgerEntry
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r VoidInitiatedLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow VoidInitiatedLedgerEntry
	r.EntryType = "void_initiated"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type AmendmentLedgerEntry struct {
	LedgerEntryBase
	JSON apijson.Fields `json:"-"`
}

func (r *AmendmentLedgerEntry) UnmarshalJSON(data []byte) error {
	type shadow AmendmentLedgerEntry
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r AmendmentLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow AmendmentLedgerEntry
	r.EntryType = "amendment"
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// NewLedgerEntry is the body of [CustomerCreditLedgerService.NewEntry].
type NewLedgerEntry struct {
	variant newLedgerEntryVariant
}

type newLedgerEntryVariant interface{ implNewLedgerEntry() }

func (NewIncrementLedgerEntry) implNewLedgerEntry()        {}
func (NewDecrementLedgerEntry) implNewLedgerEntry()        {}
func (NewExpirationChangeLedgerEntry) implNewLedgerEntry() {}
func (NewVoidLedgerEntry) implNewLedgerEntry()             {}
func (NewAmendmentLedgerEntry) implNewLedgerEntry()        {}

var newLedgerEntryUnion = apijson.NewUnion("NewLedgerEntry", "entry_type",
	apijson.Variant[NewIncrementLedgerEntry, newLedgerEntryVariant]("increment"),
	apijson.Variant[NewDecrementLedgerEntry, newLedgerEntryVariant]("decrement"),
	apijson.Variant[NewExpirationChangeLedgerEntry, newLedgerEntryVariant]("expiration_change"),
	apijson.Variant[NewVoidLedgerEntry, newLedgerEntryVariant]("void"),
	apijson.Variant[NewAmendmentLedgerEntry, newLedgerEntryVariant]("amendment"),
)

func NewLedgerEntryFromIncrement(v NewIncrementLedgerEntry) NewLedgerEntry {
	return NewLedgerEntry{variant: v}
}

func NewLedgerEntryFromDecrement(v NewDecrementLedgerEntry) NewLedgerEntry {
	return NewLedgerEntry{variant: v}
}

func NewLedgerEntryFromExpirationChange(v NewExpirationChangeLedgerEntry) NewLedgerEntry {
	return NewLedgerEntry{variant: v}
}

func NewLedgerEntryFromVoid(v NewVoidLedgerEntry) NewLedgerEntry {
	return NewLedgerEntry{variant: v}
}

func NewLedgerEntryFromAmendment(v NewAmendmentLedgerEntry) NewLedgerEntry {
	return NewLedgerEntry{variant: v}
}

func (r NewLedgerEntry) Variant() any {
	if r.variant == nil {
		return nil
	}
	return r.variant
}

func (r *NewLedgerEntry) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		return nil
	}
	v, err := newLedgerEntryUnion.Decode(data)
	if err != nil {
		return err
	}
	r.variant = v
	return nil
}

func (r NewLedgerEntry) MarshalJSON() ([]byte, error) {
	if r.variant == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.variant)
}

// NewLedgerEntryBase holds the fields shared by every new ledger entry.
type NewLedgerEntryBase struct {
	// Currency defaults to the customer's currency.
	Currency    Field[string]             `json:"currency,omitzero"`
	Description Field[string]             `json:"description,omitzero"`
	Metadata    Field[map[string]*string] `json:"metadata,omitzero"`
	EntryType   string                    `json:"entry_type"`
}

// NewIncrementLedgerEntry adds credits as a new block.
type NewIncrementLedgerEntry struct {
	NewLedgerEntryBase
	Amount           float64               `json:"amount" validate:"gt=0"`
	EffectiveDate    Field[DateOrDateTime] `json:"effective_date,omitzero"`
	ExpiryDate       Field[DateOrDateTime] `json:"expiry_date,omitzero"`
	PerUnitCostBasis Field[string]         `json:"per_unit_cost_basis,omitzero"`
}

func (r NewIncrementLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow NewIncrementLedgerEntry
	r.EntryType = "increment"
	return json.Marshal(shadow(r))
}

// NewDecrementLedgerEntry draws credits down from the oldest unexpired blocks.
type NewDecrementLedgerEntry struct {
	NewLedgerEntryBase
	Amount float64 `json:"amount" validate:"gt=0"`
}

func (r NewDecrementLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow NewDecrementLedgerEntry
	r.EntryType = "decrement"
	return json.Marshal(shadow(r))
}

// NewExpirationChangeLedgerEntry moves the expiry of blocks expiring on
// TargetExpiryDate.
type NewExpirationChangeLedgerEntry struct {
	NewLedgerEntryBase
	TargetExpiryDate Date `json:"target_expiry_date"`
	// ExpiryDate is the new expiry. Null means the block never expires.
	ExpiryDate Field[DateOrDateTime] `json:"expiry_date,omitzero"`
	BlockID    Field[string]         `json:"block_id,omitzero"`
	Amount     Field[float64]        `json:"amount,omitzero"`
}

func (r NewExpirationChangeLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow NewExpirationChangeLedgerEntry
	r.EntryType = "expiration_change"
	return json.Marshal(shadow(r))
}

type NewVoidLedgerEntry struct {
	NewLedgerEntryBase
	Amount     float64       `json:"amount" validate:"gt=0"`
	BlockID    string        `json:"block_id,required"`
	VoidReason Field[string] `json:"void_reason,omitzero"`
}

func (r NewVoidLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow NewVoidLedgerEntry
	r.EntryType = "void"
	return json.Marshal(shadow(r))
}

// NewAmendmentLedgerEntry corrects a block's balance without voiding it.
type NewAmendmentLedgerEntry struct {
	NewLedgerEntryBase
	Amount  float64 `json:"amount"`
	BlockID string  `json:"block_id,required"`
}

func (r NewAmendmentLedgerEntry) MarshalJSON() ([]byte, error) {
	type shadow NewAmendmentLedgerEntry
	r.EntryType = "amendment"
	return json.Marshal(shadow(r))
}

type CustomerCreditLedgerListParams struct {
	Cursor        *string    `query:"cursor,omitempty"`
	Limit         *int64     `query:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
	Currency      *string    `query:"currency,omitempty"`
	EntryType     *string    `query:"entry_type,omitempty" validate:"omitempty,oneof=increment decrement expiration_change credit_block_expiry void void_initiated amendment"`
	EntryStatus   *string    `query:"entry_status,omitempty" validate:"omitempty,oneof=committed pending"`
	MinimumAmount *string    `query:"minimum_amount,omitempty"`
	CreatedAtGt   *time.Time `query:"created_at[gt],omitempty"`
	CreatedAtGte  *time.Time `query:"created_at[gte],omitempty"`
	CreatedAtLt   *time.Time `query:"created_at[lt],omitempty"`
	CreatedAtLte  *time.Time `query:"created_at[lte],omitempty"`
}

func (r CustomerCreditLedgerListParams) URLQuery() (url.Values, error) {
	return apiquery.Marshal(r)
}

func (r CustomerCreditLedgerListParams) withCursor(cursor string) CustomerCreditLedgerListParams {
	r.Cursor = &cursor
	return r
}
