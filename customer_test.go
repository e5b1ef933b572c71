package orb

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/broady/orb/testutil"
)

const customerJSON = `{
	"id": "cus_1",
	"external_customer_id": "acme",
	"name": "Acme",
	"email": "billing@acme.test",
	"currency": "USD",
	"balance": "-12.00",
	"created_at": "2024-01-01T00:00:00Z",
	"timezone": "Etc/UTC",
	"auto_collection": true,
	"email_delivery": false,
	"additional_emails": [],
	"payment_provider": "stripe_invoice",
	"payment_provider_id": "cus_stripe",
	"portal_url": null,
	"billing_address": null,
	"shipping_address": {"city": "Toronto", "country": "CA", "line1": null, "line2": null, "postal_code": null, "state": "ON"},
	"metadata": {"tier": "gold"}
}`

func TestCustomer_Decode(t *testing.T) {
	var c Customer
	if err := json.Unmarshal([]byte(customerJSON), &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Balance.Equal(decimal.NewFromInt(-12)) {
		t.Errorf("expected balance -12, got %s", c.Balance)
	}
	if c.BillingAddress != nil {
		t.Errorf("expected no billing address, got %+v", c.BillingAddress)
	}
	if c.ShippingAddress == nil || c.ShippingAddress.City == nil || *c.ShippingAddress.City != "Toronto" {
		t.Errorf("expected shipping city Toronto, got %+v", c.ShippingAddress)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("expected valid customer, got %v", err)
	}

	c.PaymentProvider = String("paypal")
	if err := c.Validate(); err == nil {
		t.Error("expected error for unknown payment provider, got nil")
	}
}

func TestCustomerService_Update(t *testing.T) {
	client, s := newTestClient(t)
	s.JSON(http.MethodPut, "/customers/{id}", http.StatusOK, customerJSON)

	_, err := client.Customers.Update(context.Background(), "cus_1", CustomerUpdateParams{
		Name:            F("Acme Corp"),
		PaymentProvider: Null[string](),
		BillingAddress:  F(AddressParam{City: F("Ottawa"), Line2: Null[string]()}),
		Metadata:        F(map[string]*string{"tier": nil, "region": String("ca")}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertJSONBody(t, s.LastRequest(t), `{
		"name": "Acme Corp",
		"payment_provider": null,
		"billing_address": {"city": "Ottawa", "line2": null},
		"metadata": {"tier": null, "region": "ca"}
	}`)
}

func TestCustomerService_NewValidation(t *testing.T) {
	client, s := newStrictTestClient(t)

	_, err := client.Customers.New(context.Background(), CustomerNewParams{Email: "not-an-email", Name: "Acme"})
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if got := len(s.Requests()); got != 0 {
		t.Errorf("expected no requests, got %d", got)
	}
}

func TestCustomerService_Delete(t *testing.T) {
	client, s := newTestClient(t)
	s.Handle(http.MethodDelete, "/customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.Customers.Delete(context.Background(), "cus_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.Customers.Delete(context.Background(), ""); err == nil {
		t.Error("expected error for empty customer ID, got nil")
	}
	if got := len(s.Requests()); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
}

func TestCustomerService_ListQuery(t *testing.T) {
	client, s := newTestClient(t)
	s.JSON(http.MethodGet, "/customers", http.StatusOK, `{
		"data": [`+customerJSON+`],
		"pagination_metadata": {"has_more": false, "next_cursor": null}
	}`)

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	page, err := client.Customers.List(context.Background(), CustomerListParams{
		Limit:        Int(50),
		CreatedAtGte: &since,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != "cus_1" {
		t.Errorf("expected cus_1, got %+v", page.Data)
	}

	req := s.LastRequest(t)
	testutil.AssertQuery(t, req, "limit", "50")
	testutil.AssertQuery(t, req, "created_at[gte]", "2024-01-01T00:00:00Z")
}

func TestCustomerBalanceTransactionService_New(t *testing.T) {
	client, s := newTestClient(t)
	s.JSON(http.MethodPost, "/customers/{id}/balance_transactions", http.StatusOK, `{
		"id": "cbt_1",
		"action": "manual_adjustment",
		"amount": "25.00",
		"created_at": "2024-01-01T00:00:00Z",
		"credit_note": null,
		"description": "Goodwill",
		"starting_balance": "0.00",
		"ending_balance": "-25.00",
		"invoice": null,
		"type": "decrement"
	}`)

	res, err := client.Customers.BalanceTransactions.New(context.Background(), "cus_1", CustomerBalanceTransactionNewParams{
		Amount:      decimal.RequireFromString("25.00"),
		Type:        "decrement",
		Description: F("Goodwill"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.EndingBalance.Equal(decimal.NewFromInt(-25)) {
		t.Errorf("expected ending balance -25, got %s", res.EndingBalance)
	}

	testutil.AssertJSONBody(t, s.LastRequest(t), `{"amount": "25", "type": "decrement", "description": "Goodwill"}`)
}
