package orb

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/broady/orb/testutil"
)

func priceJSON(modelType, config string) string {
	return `{
		"id": "price_1",
		"name": "API calls",
		"external_price_id": null,
		"currency": "USD",
		"cadence": "monthly",
		"price_type": "usage_price",
		"created_at": "2024-01-01T00:00:00Z",
		"billable_metric": {"id": "bm_1"},
		"billing_cycle_configuration": {"duration": 1, "duration_unit": "month"},
		"conversion_rate": null,
		"discount": null,
		"fixed_price_quantity": null,
		"invoicing_cycle_configuration": null,
		"item": {"id": "item_1", "name": "API"},
		"metadata": {},
		"plan_phase_order": null,
		"model_type": "` + modelType + `"` + config + `
	}`
}

func TestPrice_Dispatch(t *testing.T) {
	tests := []struct {
		modelType string
		config    string
		expected  string
	}{
		{"unit", `, "unit_config": {"unit_amount": "0.01"}`, "orb.UnitPrice"},
		{"package", `, "package_config": {"package_amount": "5.00", "package_size": 1000}`, "orb.PackagePrice"},
		{"matrix", `, "matrix_config": {"default_unit_amount": "1", "dimensions": ["region"], "matrix_values": [{"dimension_values": ["us"], "unit_amount": "2"}]}`, "orb.MatrixPrice"},
		{"tiered", `, "tiered_config": {"tiers": [{"first_unit": 0, "last_unit": 100, "unit_amount": "1"}, {"first_unit": 100, "last_unit": null, "unit_amount": "0.5"}]}`, "orb.TieredPrice"},
		{"bulk", `, "bulk_config": {"tiers": [{"maximum_units": null, "unit_amount": "0.2"}]}`, "orb.BulkPrice"},
		{"threshold_total_amount", `, "threshold_total_amount_config": {}`, "orb.UnknownPrice"},
	}

	for _, tt := range tests {
		t.Run(tt.modelType, func(t *testing.T) {
			var p Price
			if err := json.Unmarshal([]byte(priceJSON(tt.modelType, tt.config)), &p); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeString(p.Variant()); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}

			base, ok := p.Base()
			if tt.expected == "orb.UnknownPrice" {
				if ok {
					t.Error("expected no base fields for an unknown price")
				}
				return
			}
			if !ok {
				t.Fatal("expected base fields")
			}
			if base.Item.Name != "API" {
				t.Errorf("expected item %q, got %q", "API", base.Item.Name)
			}
		})
	}
}

func TestPrice_UnknownRoundTrip(t *testing.T) {
	raw := priceJSON("grouped_allocation", `, "grouped_allocation_config": {"allocation": "10"}`)

	var p Price
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unknown, ok := p.AsUnknown()
	if !ok {
		t.Fatalf("expected UnknownPrice, got %T", p.Variant())
	}
	if unknown.ModelType() != "grouped_allocation" {
		t.Errorf("expected model type %q, got %q", "grouped_allocation", unknown.ModelType())
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(raw)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != compact.String() {
		t.Errorf("expected raw JSON back unchanged, got %s", out)
	}
}

func TestPrice_Values(t *testing.T) {
	var p Price
	if err := json.Unmarshal([]byte(priceJSON("tiered", `, "tiered_config": {"tiers": [{"first_unit": 0, "last_unit": 100, "unit_amount": "1"}, {"first_unit": 100, "last_unit": null, "unit_amount": "0.5"}]}`)), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tiered, ok := p.AsTiered()
	if !ok {
		t.Fatalf("expected TieredPrice, got %T", p.Variant())
	}
	tiers := tiered.TieredConfig.Tiers
	if len(tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(tiers))
	}
	if tiers[1].LastUnit != nil {
		t.Errorf("expected open last tier, got %v", *tiers[1].LastUnit)
	}
	if !tiers[1].UnitAmount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("expected 0.5, got %s", tiers[1].UnitAmount)
	}
	if tiered.BillingCycleConfiguration.DurationUnit != "month" {
		t.Errorf("expected month, got %q", tiered.BillingCycleConfiguration.DurationUnit)
	}
}

func TestPriceService_New(t *testing.T) {
	client, s := newTestClient(t)
	s.JSON(http.MethodPost, "/prices", http.StatusOK, priceJSON("package", `, "package_config": {"package_amount": "5.00", "package_size": 1000}`))

	res, err := client.Prices.New(context.Background(), NewPriceFromPackage(NewPackagePrice{
		NewPriceBase: NewPriceBase{
			Cadence:         "monthly",
			Currency:        "USD",
			ItemID:          "item_1",
			Name:            "API calls",
			BilledInAdvance: F(false),
		},
		PackageConfig: PackageConfig{PackageAmount: decimal.RequireFromString("5.00"), PackageSize: 1000},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := res.AsPackage(); !ok {
		t.Errorf("expected PackagePrice, got %T", res.Variant())
	}

	testutil.AssertJSONBody(t, s.LastRequest(t), `{
		"model_type": "package",
		"cadence": "monthly",
		"currency": "USD",
		"item_id": "item_1",
		"name": "API calls",
		"billed_in_advance": false,
		"package_config": {"package_amount": "5", "package_size": 1000}
	}`)
}

func TestPriceService_NewValidation(t *testing.T) {
	client, s := newStrictTestClient(t)

	_, err := client.Prices.New(context.Background(), NewPriceFromUnit(NewUnitPrice{
		NewPriceBase: NewPriceBase{Cadence: "weekly", Currency: "USD", ItemID: "item_1", Name: "Seats"},
		UnitConfig:   UnitConfig{UnitAmount: decimal.NewFromInt(1)},
	}))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if got := len(s.Requests()); got != 0 {
		t.Errorf("expected no requests, got %d", got)
	}
}

func TestPriceService_Evaluate(t *testing.T) {
	client, s := newTestClient(t)
	s.JSON(http.MethodPost, "/prices/{id}/evaluate", http.StatusOK, `{
		"data": [
			{"amount": "3.50", "grouping_values": ["us-east-1", 2, true], "quantity": 350},
			{"amount": "0", "grouping_values": [null], "quantity": 0}
		]
	}`)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := client.Prices.Evaluate(context.Background(), "price_1", PriceEvaluateParams{
		TimeframeStart: start,
		TimeframeEnd:   start.AddDate(0, 1, 0),
		GroupingKeys:   F([]string{"region", "tier", "enterprise"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Data) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(res.Data))
	}
	values := res.Data[0].GroupingValues
	if str, ok := values[0].AsString(); !ok || str != "us-east-1" {
		t.Errorf("expected string grouping value, got %v", values[0].Variant())
	}
	if f, ok := values[1].AsFloat(); !ok || f != 2 {
		t.Errorf("expected numeric grouping value, got %v", values[1].Variant())
	}
	if b, ok := values[2].AsBool(); !ok || !b {
		t.Errorf("expected boolean grouping value, got %v", values[2].Variant())
	}
	if res.Data[1].GroupingValues[0].Variant() != nil {
		t.Errorf("expected null grouping value, got %v", res.Data[1].GroupingValues[0].Variant())
	}

	testutil.AssertJSONBody(t, s.LastRequest(t), `{
		"timeframe_start": "2024-01-01T00:00:00Z",
		"timeframe_end": "2024-02-01T00:00:00Z",
		"grouping_keys": ["region", "tier", "enterprise"]
	}`)

	strict, _ := newStrictTestClient(t)
	_, err = strict.Prices.Evaluate(context.Background(), "price_1", PriceEvaluateParams{
		TimeframeStart: start,
		TimeframeEnd:   start,
	})
	if err == nil {
		t.Error("expected error for empty timeframe, got nil")
	}
}
