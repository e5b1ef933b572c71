package orb

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// TestServices_Routes checks the method and path each service method sends.
func TestServices_Routes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		path   string
		call   func(c *Client) error
	}{
		{"ping", http.MethodGet, "/ping", func(c *Client) error {
			_, err := c.TopLevel.Ping(ctx)
			return err
		}},

		{"coupons new", http.MethodPost, "/coupons", func(c *Client) error {
			_, err := c.Coupons.New(ctx, CouponNewParams{Discount: NewCouponPercentageDiscount(0.1), RedemptionCode: "X"})
			return err
		}},
		{"coupons list", http.MethodGet, "/coupons", func(c *Client) error {
			_, err := c.Coupons.List(ctx, CouponListParams{})
			return err
		}},
		{"coupons fetch", http.MethodGet, "/coupons/cpn_1", func(c *Client) error {
			_, err := c.Coupons.Fetch(ctx, "cpn_1")
			return err
		}},
		{"coupons archive", http.MethodPost, "/coupons/cpn_1/archive", func(c *Client) error {
			_, err := c.Coupons.Archive(ctx, "cpn_1")
			return err
		}},
		{"coupon subscriptions", http.MethodGet, "/coupons/cpn_1/subscriptions", func(c *Client) error {
			_, err := c.Coupons.Subscriptions.List(ctx, "cpn_1", CouponSubscriptionListParams{})
			return err
		}},

		{"customers new", http.MethodPost, "/customers", func(c *Client) error {
			_, err := c.Customers.New(ctx, CustomerNewParams{Email: "a@example.com", Name: "A"})
			return err
		}},
		{"customers update", http.MethodPut, "/customers/cus_1", func(c *Client) error {
			_, err := c.Customers.Update(ctx, "cus_1", CustomerUpdateParams{})
			return err
		}},
		{"customers update by external id", http.MethodPut, "/customers/external_customer_id/ext%2F1", func(c *Client) error {
			_, err := c.Customers.UpdateByExternalID(ctx, "ext/1", CustomerUpdateParams{})
			return err
		}},
		{"customers list", http.MethodGet, "/customers", func(c *Client) error {
			_, err := c.Customers.List(ctx, CustomerListParams{})
			return err
		}},
		{"customers fetch", http.MethodGet, "/customers/cus_1", func(c *Client) error {
			_, err := c.Customers.Fetch(ctx, "cus_1")
			return err
		}},
		{"customers fetch by external id", http.MethodGet, "/customers/external_customer_id/ext_1", func(c *Client) error {
			_, err := c.Customers.FetchByExternalID(ctx, "ext_1")
			return err
		}},
		{"customers delete", http.MethodDelete, "/customers/cus_1", func(c *Client) error {
			return c.Customers.Delete(ctx, "cus_1")
		}},
		{"balance transactions new", http.MethodPost, "/customers/cus_1/balance_transactions", func(c *Client) error {
			_, err := c.Customers.BalanceTransactions.New(ctx, "cus_1", CustomerBalanceTransactionNewParams{Type: "increment"})
			return err
		}},
		{"balance transactions list", http.MethodGet, "/customers/cus_1/balance_transactions", func(c *Client) error {
			_, err := c.Customers.BalanceTransactions.List(ctx, "cus_1", CustomerBalanceTransactionListParams{})
			return err
		}},
		{"credit ledger list", http.MethodGet, "/customers/cus_1/credits/ledger", func(c *Client) error {
			_, err := c.Customers.Credits.Ledger.List(ctx, "cus_1", CustomerCreditLedgerListParams{})
			return err
		}},
		{"credit ledger new entry", http.MethodPost, "/customers/cus_1/credits/ledger_entry", func(c *Client) error {
			_, err := c.Customers.Credits.Ledger.NewEntry(ctx, "cus_1", NewLedgerEntryFromDecrement(NewDecrementLedgerEntry{Amount: 5}))
			return err
		}},

		{"invoices new", http.MethodPost, "/invoices", func(c *Client) error {
			_, err := c.Invoices.New(ctx, InvoiceNewParams{
				Currency:    "USD",
				InvoiceDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				LineItems: []InvoiceNewParamsLineItem{{
					Name:       "Setup",
					ItemID:     "item_1",
					Quantity:   1,
					UnitConfig: UnitConfig{UnitAmount: decimal.NewFromInt(250)},
				}},
			})
			return err
		}},
		{"invoices update", http.MethodPut, "/invoices/inv_1", func(c *Client) error {
			_, err := c.Invoices.Update(ctx, "inv_1", InvoiceUpdateParams{})
			return err
		}},
		{"invoices list", http.MethodGet, "/invoices", func(c *Client) error {
			_, err := c.Invoices.List(ctx, InvoiceListParams{})
			return err
		}},
		{"invoices fetch", http.MethodGet, "/invoices/inv_1", func(c *Client) error {
			_, err := c.Invoices.Fetch(ctx, "inv_1")
			return err
		}},
		{"invoices fetch upcoming", http.MethodGet, "/invoices/upcoming", func(c *Client) error {
			_, err := c.Invoices.FetchUpcoming(ctx, InvoiceFetchUpcomingParams{SubscriptionID: "sub_1"})
			return err
		}},
		{"invoices issue", http.MethodPost, "/invoices/inv_1/issue", func(c *Client) error {
			_, err := c.Invoices.Issue(ctx, "inv_1", InvoiceIssueParams{})
			return err
		}},
		{"invoices mark paid", http.MethodPost, "/invoices/inv_1/mark_paid", func(c *Client) error {
			_, err := c.Invoices.MarkPaid(ctx, "inv_1", InvoiceMarkPaidParams{})
			return err
		}},
		{"invoices void", http.MethodPost, "/invoices/inv_1/void", func(c *Client) error {
			_, err := c.Invoices.Void(ctx, "inv_1")
			return err
		}},

		{"prices new", http.MethodPost, "/prices", func(c *Client) error {
			_, err := c.Prices.New(ctx, NewPriceFromUnit(NewUnitPrice{
				NewPriceBase: NewPriceBase{Cadence: "monthly", Currency: "USD", ItemID: "item_1", Name: "Seats"},
				UnitConfig:   UnitConfig{UnitAmount: decimal.NewFromInt(1)},
			}))
			return err
		}},
		{"prices update", http.MethodPut, "/prices/price_1", func(c *Client) error {
			_, err := c.Prices.Update(ctx, "price_1", PriceUpdateParams{})
			return err
		}},
		{"prices list", http.MethodGet, "/prices", func(c *Client) error {
			_, err := c.Prices.List(ctx, PriceListParams{})
			return err
		}},
		{"prices fetch", http.MethodGet, "/prices/price_1", func(c *Client) error {
			_, err := c.Prices.Fetch(ctx, "price_1")
			return err
		}},
		{"prices evaluate", http.MethodPost, "/prices/price_1/evaluate", func(c *Client) error {
			start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			_, err := c.Prices.Evaluate(ctx, "price_1", PriceEvaluateParams{
				TimeframeStart: start,
				TimeframeEnd:   start.AddDate(0, 1, 0),
			})
			return err
		}},
		{"prices fetch by external id", http.MethodGet, "/prices/external_price_id/ext_1", func(c *Client) error {
			_, err := c.Prices.ExternalPriceID.Fetch(ctx, "ext_1")
			return err
		}},

		{"plans new", http.MethodPost, "/plans", func(c *Client) error {
			_, err := c.Plans.New(ctx, PlanNewParams{
				Currency: "USD",
				Name:     "Starter",
				Prices: []NewPrice{NewPriceFromUnit(NewUnitPrice{
					NewPriceBase: NewPriceBase{Cadence: "monthly", Currency: "USD", ItemID: "item_1", Name: "Seats"},
					UnitConfig:   UnitConfig{UnitAmount: decimal.NewFromInt(1)},
				})},
			})
			return err
		}},
		{"plans update", http.MethodPut, "/plans/plan_1", func(c *Client) error {
			_, err := c.Plans.Update(ctx, "plan_1", PlanUpdateParams{})
			return err
		}},
		{"plans list", http.MethodGet, "/plans", func(c *Client) error {
			_, err := c.Plans.List(ctx, PlanListParams{})
			return err
		}},
		{"plans fetch", http.MethodGet, "/plans/plan_1", func(c *Client) error {
			_, err := c.Plans.Fetch(ctx, "plan_1")
			return err
		}},

		{"subscriptions new", http.MethodPost, "/subscriptions", func(c *Client) error {
			_, err := c.Subscriptions.New(ctx, SubscriptionNewParams{})
			return err
		}},
		{"subscriptions update", http.MethodPut, "/subscriptions/sub_1", func(c *Client) error {
			_, err := c.Subscriptions.Update(ctx, "sub_1", SubscriptionUpdateParams{})
			return err
		}},
		{"subscriptions list", http.MethodGet, "/subscriptions", func(c *Client) error {
			_, err := c.Subscriptions.List(ctx, SubscriptionListParams{})
			return err
		}},
		{"subscriptions fetch", http.MethodGet, "/subscriptions/sub_1", func(c *Client) error {
			_, err := c.Subscriptions.Fetch(ctx, "sub_1")
			return err
		}},
		{"subscriptions cancel", http.MethodPost, "/subscriptions/sub_1/cancel", func(c *Client) error {
			_, err := c.Subscriptions.Cancel(ctx, "sub_1", SubscriptionCancelParams{CancelOption: "immediate"})
			return err
		}},

		{"dimensional price groups new", http.MethodPost, "/dimensional_price_groups", func(c *Client) error {
			_, err := c.DimensionalPriceGroups.New(ctx, DimensionalPriceGroupNewParams{
				BillableMetricID: "bm_1",
				Name:             "Regions",
				Dimensions:       []string{"region"},
			})
			return err
		}},
		{"dimensional price groups list", http.MethodGet, "/dimensional_price_groups", func(c *Client) error {
			_, err := c.DimensionalPriceGroups.List(ctx, DimensionalPriceGroupListParams{})
			return err
		}},
		{"dimensional price groups fetch", http.MethodGet, "/dimensional_price_groups/dpg_1", func(c *Client) error {
			_, err := c.DimensionalPriceGroups.Fetch(ctx, "dpg_1")
			return err
		}},
		{"dimensional price groups update", http.MethodPut, "/dimensional_price_groups/dpg_1", func(c *Client) error {
			_, err := c.DimensionalPriceGroups.Update(ctx, "dpg_1", DimensionalPriceGroupUpdateParams{})
			return err
		}},
		{"dimensional price groups fetch by external id", http.MethodGet, "/dimensional_price_groups/external_dimensional_price_group_id/ext_1", func(c *Client) error {
			_, err := c.DimensionalPriceGroups.ExternalDimensionalPriceGroupID.Fetch(ctx, "ext_1")
			return err
		}},
		{"dimensional price groups update by external id", http.MethodPut, "/dimensional_price_groups/external_dimensional_price_group_id/ext_1", func(c *Client) error {
			_, err := c.DimensionalPriceGroups.ExternalDimensionalPriceGroupID.Update(ctx, "ext_1", ExternalDimensionalPriceGroupIDUpdateParams{})
			return err
		}},

		{"events ingest", http.MethodPost, "/ingest", func(c *Client) error {
			_, err := c.Events.Ingest(ctx, EventIngestParams{Events: []EventParam{{
				EventName:      "api_call",
				IdempotencyKey: NewIdempotencyKey(),
				Timestamp:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				Properties:     map[string]any{},
			}}})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, s := newTestClient(t)
			s.JSON(tt.method, "/*", http.StatusOK, `{}`)

			if err := tt.call(client); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			req := s.LastRequest(t)
			if req.Method != tt.method {
				t.Errorf("expected method %s, got %s", tt.method, req.Method)
			}
			if req.Path != tt.path {
				t.Errorf("expected path %s, got %s", tt.path, req.Path)
			}
		})
	}
}
