package orb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/broady/orb/internal/apijson"
	"github.com/broady/orb/testutil"
)

const subscriptionJSON = `{
	"id": "sub_1",
	"created_at": "2024-01-01T00:00:00Z",
	"start_date": "2024-01-01T00:00:00Z",
	"end_date": null,
	"current_billing_period_start_date": "2024-02-01T00:00:00Z",
	"current_billing_period_end_date": "2024-03-01T00:00:00Z",
	"status": "active",
	"customer": ` + customerJSON + `,
	"plan": null,
	"auto_collection": null,
	"default_invoice_memo": null,
	"net_terms": 30,
	"billing_cycle_day": 1,
	"active_plan_phase_order": null,
	"invoicing_threshold": null,
	"discount_intervals": [
		{"discount_type": "percentage", "percentage_discount": 0.2, "applies_to_price_ids": ["price_1"],
		 "applies_to_price_interval_ids": [], "start_date": "2024-01-01T00:00:00Z", "end_date": null},
		{"discount_type": "amount", "amount_discount": "10.00", "applies_to_price_ids": [],
		 "applies_to_price_interval_ids": ["pi_1"], "start_date": "2024-01-01T00:00:00Z", "end_date": "2024-06-01T00:00:00Z"}
	],
	"adjustment_intervals": [],
	"price_intervals": [],
	"redeemed_coupon": {"coupon_id": "cpn_1", "start_date": "2024-01-01T00:00:00Z", "end_date": null},
	"trial_info": {"end_date": null},
	"metadata": {}
}`

func TestSubscription_Decode(t *testing.T) {
	var sub Subscription
	if err := json.Unmarshal([]byte(subscriptionJSON), &sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Plan != nil {
		t.Errorf("expected no plan, got %+v", sub.Plan)
	}
	if sub.Customer.ID != "cus_1" {
		t.Errorf("expected customer %q, got %q", "cus_1", sub.Customer.ID)
	}

	var types []string
	for _, d := range sub.DiscountIntervals {
		types = append(types, typeString(d.Variant()))
	}
	if diff := cmp.Diff([]string{"orb.PercentageDiscountInterval", "orb.AmountDiscountInterval"}, types); diff != "" {
		t.Errorf("discount intervals mismatch (-want +got):\n%s", diff)
	}

	pct, _ := sub.DiscountIntervals[0].AsPercentage()
	if diff := cmp.Diff([]string{"price_1"}, pct.AppliesToPriceIDs); diff != "" {
		t.Errorf("applies_to_price_ids mismatch (-want +got):\n%s", diff)
	}
	amt, _ := sub.DiscountIntervals[1].AsAmount()
	if amt.EndDate == nil || !amt.EndDate.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected end date 2024-06-01, got %v", amt.EndDate)
	}

	if err := sub.Validate(); err != nil {
		t.Errorf("expected valid subscription, got %v", err)
	}
	sub.BillingCycleDay = 32
	var valErr *apijson.ValidationError
	if err := sub.Validate(); !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if valErr.Problems[0].Path != "billing_cycle_day" {
		t.Errorf("expected problem at billing_cycle_day, got %v", valErr.Problems)
	}
}

func TestSubscriptionService_Update(t *testing.T) {
	client, s := newTestClient(t)
	s.JSON(http.MethodPut, "/subscriptions/{id}", http.StatusOK, subscriptionJSON)

	_, err := client.Subscriptions.Update(context.Background(), "sub_1", SubscriptionUpdateParams{
		AutoCollection:     Null[bool](),
		DefaultInvoiceMemo: F("Thanks!"),
		NetTerms:           F[int64](0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertJSONBody(t, s.LastRequest(t), `{
		"auto_collection": null,
		"default_invoice_memo": "Thanks!",
		"net_terms": 0
	}`)
}

func TestSubscriptionService_Cancel(t *testing.T) {
	tests := []struct {
		name     string
		params   SubscriptionCancelParams
		expected string
	}{
		{
			name:     "missing option",
			params:   SubscriptionCancelParams{},
			expected: "cancel_option",
		},
		{
			name:     "unknown option",
			params:   SubscriptionCancelParams{CancelOption: "tomorrow"},
			expected: "cancel_option",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, s := newStrictTestClient(t)

			_, err := client.Subscriptions.Cancel(context.Background(), "sub_1", tt.params)
			var valErr *apijson.ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if valErr.Problems[0].Path != tt.expected {
				t.Errorf("expected problem at %s, got %v", tt.expected, valErr.Problems)
			}
			if got := len(s.Requests()); got != 0 {
				t.Errorf("expected no requests, got %d", got)
			}
		})
	}

	t.Run("requested date", func(t *testing.T) {
		client, s := newTestClient(t)
		s.JSON(http.MethodPost, "/subscriptions/{id}/cancel", http.StatusOK, subscriptionJSON)

		_, err := client.Subscriptions.Cancel(context.Background(), "sub_1", SubscriptionCancelParams{
			CancelOption:     "requested_date",
			CancellationDate: F(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		testutil.AssertJSONBody(t, s.LastRequest(t), `{
			"cancel_option": "requested_date",
			"cancellation_date": "2024-12-31T00:00:00Z"
		}`)
	})
}

func TestSubscriptionService_ListQuery(t *testing.T) {
	client, s := newTestClient(t)
	s.JSON(http.MethodGet, "/subscriptions", http.StatusOK, emptyPage)

	_, err := client.Subscriptions.List(context.Background(), SubscriptionListParams{
		CustomerID: []string{"cus_1", "cus_2"},
		Status:     String("active"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := s.LastRequest(t)
	if diff := cmp.Diff([]string{"cus_1", "cus_2"}, req.Query["customer_id[]"]); diff != "" {
		t.Errorf("customer_id[] mismatch (-want +got):\n%s", diff)
	}
	testutil.AssertQuery(t, req, "status", "active")
	if req.Query.Has("external_customer_id[]") {
		t.Error("expected external_customer_id[] to be omitted")
	}
}
