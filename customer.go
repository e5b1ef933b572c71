package orb

import (
	"context"
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

// CustomerService manages customers, the accounts that subscriptions,
// invoices and credits belong to.
//
// Most endpoints address a customer by Orb ID. The ByExternalID variants
// address it by the caller's own identifier instead.
type CustomerService struct {
	Options             []option.RequestOption
	BalanceTransactions CustomerBalanceTransactionService
	Credits             CustomerCreditService
}

func NewCustomerService(opts ...option.RequestOption) (r CustomerService) {
	r = CustomerService{}
	r.Options = opts
	r.BalanceTransactions = NewCustomerBalanceTransactionService(opts...)
	r.Credits = NewCustomerCreditService(opts...)
	return
}

func (r *CustomerService) New(ctx context.Context, body CustomerNewParams, opts ...option.RequestOption) (res *Customer, err error) {
	opts = slices.Concat(r.Options, opts)
	path := "customers"
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

// Update changes the fields set in body. Unset fields are left unchanged and
// fields set to null are cleared.
func (r *CustomerService) Update(ctx context.Context, customerID string, body CustomerUpdateParams, opts ...option.RequestOption) (res *Customer, err error) {
	opts = slices.Concat(r.Options, opts)
	if customerID == "" {
		err = errors.New("missing required customer_id parameter")
		return
	}
	path := fmt.Sprintf("customers/%s", url.PathEscape(customerID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPut, path, body, &res, opts...)
	return
}

// UpdateByExternalID is [CustomerService.Update] for a customer addressed by
// external_customer_id.
func (r *CustomerService) UpdateByExternalID(ctx context.Context, externalCustomerID string, body CustomerUpdateParams, opts ...option.RequestOption) (res *Customer, err error) {
	opts = slices.Concat(r.Options, opts)
	if externalCustomerID == "" {
		err = errors.New("missing required external_customer_id parameter")
		return
	}
	path := fmt.Sprintf("customers/external_customer_id/%s", url.PathEscape(externalCustomerID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPut, path, body, &res, opts...)
	return
}

// List returns customers, most recently created first.
func (r *CustomerService) List(ctx context.Context, query CustomerListParams, opts ...option.RequestOption) (*Page[Customer], error) {
	opts = slices.Concat(r.Options, opts)
	return getPage[Customer](ctx, "customers", query, opts)
}

func (r *CustomerService) Fetch(ctx context.Context, customerID string, opts ...option.RequestOption) (res *Customer, err error) {
	opts = slices.Concat(r.Options, opts)
	if customerID == "" {
		err = errors.New("missing required customer_id parameter")
		return
	}
	path := fmt.Sprintf("customers/%s", url.PathEscape(customerID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...)
	return
}

func (r *CustomerService) FetchByExternalID(ctx context.Context, externalCustomerID string, opts ...option.RequestOption) (res *Customer, err error) {
	opts = slices.Concat(r.Options, opts)
	if externalCustomerID == "" {
		err = errors.New("missing required external_customer_id parameter")
		return
	}
	path := fmt.Sprintf("customers/external_customer_id/%s", url.PathEscape(externalCustomerID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...)
	return
}

// Delete removes a customer. Deletion is asynchronous on the server, so the
// customer may still be returned by reads for a short time.
func (r *CustomerService) Delete(ctx context.Context, customerID string, opts ...option.RequestOption) (err error) {
	opts = slices.Concat(r.Options, opts)
	if customerID == "" {
		err = errors.New("missing required customer_id parameter")
		return
	}
	path := fmt.Sprintf("customers/%s", url.PathEscape(customerID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodDelete, path, nil, nil, opts...)
	return
}

type Customer struct {
	ID                 string  `json:"id,required"`
	ExternalCustomerID *string `json:"external_customer_id"`
	Name               string  `json:"name,required"`
	Email              string  `json:"email,required"`
	// Currency is set once the customer has been invoiced or given a balance.
	Currency *string `json:"currency"`
	// Balance is the customer's cash balance, in Currency.
	Balance           decimal.Decimal   `json:"balance,required"`
	CreatedAt         time.Time         `json:"created_at,required"`
	Timezone          string            `json:"timezone,required"`
	AutoCollection    bool              `json:"auto_collection,required"`
	EmailDelivery     bool              `json:"email_delivery,required"`
	AdditionalEmails  []string          `json:"additional_emails,required"`
	PaymentProvider   *string           `json:"payment_provider" validate:"omitempty,oneof=quickbooks bill.com stripe_charge stripe_invoice netsuite"`
	PaymentProviderID *string           `json:"payment_provider_id"`
	PortalURL         *string           `json:"portal_url"`
	BillingAddress    *Address          `json:"billing_address"`
	ShippingAddress   *Address          `json:"shipping_address"`
	Metadata          map[string]string `json:"metadata,required"`
	JSON              apijson.Fields    `json:"-"`
}

func (r *Customer) UnmarshalJSON(data []byte) error {
	type shadow Customer
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r Customer) MarshalJSON() ([]byte, error) {
	type shadow Customer
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// Validate checks the customer strictly. See [option.WithResponseValidation].
func (r *Customer) Validate() error { return apijson.Validate(r) }

type CustomerNewParams struct {
	Email              string              `json:"email,required" validate:"email"`
	Name               string              `json:"name,required"`
	ExternalCustomerID Field[string]       `json:"external_customer_id,omitzero"`
	Currency           Field[string]       `json:"currency,omitzero"`
	Timezone           Field[string]       `json:"timezone,omitzero"`
	AutoCollection     Field[bool]         `json:"auto_collection,omitzero"`
	EmailDelivery      Field[bool]         `json:"email_delivery,omitzero"`
	AdditionalEmails   Field[[]string]     `json:"additional_emails,omitzero"`
	PaymentProvider    Field[string]       `json:"payment_provider,omitzero"`
	PaymentProviderID  Field[string]       `json:"payment_provider_id,omitzero"`
	BillingAddress     Field[AddressParam] `json:"billing_address,omitzero"`
	ShippingAddress    Field[AddressParam] `json:"shipping_address,omitzero"`
	// Keys set to null are removed.
	Metadata Field[map[string]*string] `json:"metadata,omitzero"`
}

type CustomerUpdateParams struct {
	Email              Field[string]             `json:"email,omitzero"`
	Name               Field[string]             `json:"name,omitzero"`
	ExternalCustomerID Field[string]             `json:"external_customer_id,omitzero"`
	Currency           Field[string]             `json:"currency,omitzero"`
	Timezone           Field[string]             `json:"timezone,omitzero"`
	AutoCollection     Field[bool]               `json:"auto_collection,omitzero"`
	EmailDelivery      Field[bool]               `json:"email_delivery,omitzero"`
	AdditionalEmails   Field[[]string]           `json:"additional_emails,omitzero"`
	PaymentProvider    Field[string]             `json:"payment_provider,omitzero"`
	PaymentProviderID  Field[string]             `json:"payment_provider_id,omitzero"`
	BillingAddress     Field[AddressParam]       `json:"billing_address,omitzero"`
	ShippingAddress    Field[AddressParam]       `json:"shipping_address,omitzero"`
	Metadata           Field[map[string]*string] `json:"metadata,omitzero"`
}

type CustomerListParams struct {
	Cursor       *string    `query:"cursor,omitempty"`
	Limit        *int64     `query:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
	CreatedAtGt  *time.Time `query:"created_at[gt],omitempty"`
	CreatedAtGte *time.Time `query:"created_at[gte],omitempty"`
	CreatedAtLt  *time.Time `query:"created_at[lt],omitempty"`
	CreatedAtLte *time.Time `query:"created_at[lte],omitempty"`
}

func (r CustomerListParams) URLQuery() (url.Values, error) { return apiquery.Marshal(r) }

func (r CustomerListParams) withCursor(cursor string) CustomerListParams {
	r.Cursor = &cursor
	return r
}

// CustomerBalanceTransactionService manages changes to a customer's cash balance.
type CustomerBalanceTransactionService struct {
	Options []option.RequestOption
}

func NewCustomerBalanceTransactionService(opts ...option.RequestOption) (r CustomerBalanceTransactionService) {
	r = CustomerBalanceTransactionService{}
	r.Options = opts
	return
}

// New adds to or removes from the customer's balance.
func (r *CustomerBalanceTransactionService) New(ctx context.Context, customerID string, body CustomerBalanceTransactionNewParams, opts ...option.RequestOption) (res *CustomerBalanceTransaction, err error) {
	opts = slices.Concat(r.Options, opts)
	if customerID == "" {
		err = errors.New("missing required customer_id parameter")
		return
	}
	path := fmt.Sprintf("customers/%s/balance_transactions", url.PathEscape(customerID))
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, body, &res, opts...)
	return
}

func (r *CustomerBalanceTransactionService) List(ctx context.Context, customerID string, query CustomerBalanceTransactionListParams, opts ...option.RequestOption) (*Page[CustomerBalanceTransaction], error) {
	opts = slices.Concat(r.Options, opts)
	if customerID == "" {
		return nil, errors.New("missing required customer_id parameter")
	}
	path := fmt.Sprintf("customers/%s/balance_transactions", url.PathEscape(customerID))
	return getPage[CustomerBalanceTransaction](ctx, path, query, opts)
}

type CustomerBalanceTransaction struct {
	ID              string          `json:"id,required"`
	Action          string          `json:"action,required" validate:"oneof=applied_to_invoice manual_adjustment prorated_refund revert_prorated_refund return_from_voiding credit_note_applied credit_note_voided overpayment_refund external_payment"`
	Amount          decimal.Decimal `json:"amount,required"`
	CreatedAt       time.Time       `json:"created_at,required"`
	CreditNote      *IDRef          `json:"credit_note"`
	Description     *string         `json:"description"`
	StartingBalance decimal.Decimal `json:"starting_balance,required"`
	EndingBalance   decimal.Decimal `json:"ending_balance,required"`
	Invoice         *IDRef          `json:"invoice"`
	Type            string          `json:"type,required" validate:"oneof=increment decrement"`
	JSON            apijson.Fields  `json:"-"`
}

func (r *CustomerBalanceTransaction) UnmarshalJSON(data []byte) error {
	type shadow CustomerBalanceTransaction
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r CustomerBalanceTransaction) MarshalJSON() ([]byte, error) {
	type shadow CustomerBalanceTransaction
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type CustomerBalanceTransactionNewParams struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type,required" validate:"oneof=increment decrement"`
	Description Field[string]   `json:"description,omitzero"`
}

type CustomerBalanceTransactionListParams struct {
	Cursor           *string    `query:"cursor,omitempty"`
	Limit            *int64     `query:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
	OperationTimeGt  *time.Time `query:"operation_time[gt],omitempty"`
	OperationTimeGte *time.Time `query:"operation_time[gte],omitempty"`
	OperationTimeLt  *time.Time `query:"operation_time[lt],omitempty"`
	OperationTimeLte *time.Time `query:"operation_time[lte],omitempty"`
}

func (r CustomerBalanceTransactionListParams) URLQuery() (url.Values, error) {
	return apiquery.Marshal(r)
}

func (r CustomerBalanceTransactionListParams) withCursor(cursor string) CustomerBalanceTransactionListParams {
	r.Cursor = &cursor
	return r
}
