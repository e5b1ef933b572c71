package orb

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/broady/orb/testutil"
)

const dimensionalPriceGroupJSON = `{
	"id": "dpg_1",
	"name": "Compute by region",
	"billable_metric_id": "bm_1",
	"dimensions": ["region", "instance_type"],
	"external_dimensional_price_group_id": "compute",
	"metadata": {"team": "infra"}
}`

func TestDimensionalPriceGroupService_New(t *testing.T) {
	client, s := newTestClient(t)
	s.JSON(http.MethodPost, "/dimensional_price_groups", http.StatusOK, dimensionalPriceGroupJSON)

	group, err := client.DimensionalPriceGroups.New(context.Background(), DimensionalPriceGroupNewParams{
		BillableMetricID:                "bm_1",
		Name:                            "Compute by region",
		Dimensions:                      []string{"region", "instance_type"},
		ExternalDimensionalPriceGroupID: F("compute"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"region", "instance_type"}, group.Dimensions); diff != "" {
		t.Errorf("dimensions mismatch (-want +got):\n%s", diff)
	}
	if group.Metadata["team"] != "infra" {
		t.Errorf("expected metadata team %q, got %q", "infra", group.Metadata["team"])
	}

	testutil.AssertJSONBody(t, s.LastRequest(t), `{
		"billable_metric_id": "bm_1",
		"name": "Compute by region",
		"dimensions": ["region", "instance_type"],
		"external_dimensional_price_group_id": "compute"
	}`)
}

func TestDimensionalPriceGroupService_NewRequiresDimensions(t *testing.T) {
	client, s := newStrictTestClient(t)

	_, err := client.DimensionalPriceGroups.New(context.Background(), DimensionalPriceGroupNewParams{
		BillableMetricID: "bm_1",
		Name:             "Compute by region",
		Dimensions:       []string{},
	})
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if got := len(s.Requests()); got != 0 {
		t.Errorf("expected no requests, got %d", got)
	}
}

func TestDimensionalPriceGroupService_UpdateByExternalID(t *testing.T) {
	client, s := newTestClient(t)
	s.JSON(http.MethodPut, "/dimensional_price_groups/external_dimensional_price_group_id/{id}", http.StatusOK, dimensionalPriceGroupJSON)

	_, err := client.DimensionalPriceGroups.ExternalDimensionalPriceGroupID.Update(context.Background(), "compute", ExternalDimensionalPriceGroupIDUpdateParams{
		Metadata: Null[map[string]*string](),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := s.LastRequest(t)
	if req.Path != "/dimensional_price_groups/external_dimensional_price_group_id/compute" {
		t.Errorf("unexpected path %q", req.Path)
	}
	testutil.AssertJSONBody(t, req, `{"metadata": null}`)

	if _, err := client.DimensionalPriceGroups.ExternalDimensionalPriceGroupID.Fetch(context.Background(), ""); err == nil {
		t.Error("expected error for empty external id")
	}
}
