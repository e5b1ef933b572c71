// Package orb is a client for the Orb billing API.
//
// Create a client, then call methods on its resource services:
//
//	client := orb.NewClient(option.WithAPIKey("..."))
//	customer, err := client.Customers.Fetch(ctx, "cus_123")
//
// Each method sends exactly one HTTP request. Non-2xx responses are returned
// as *[Error]. List methods return a [Page] that can fetch the pages after it.
package orb

import (
	"context"
	"net/http"
	"slices"

	"github.com/broady/orb/internal/requestconfig"
	"github.com/broady/orb/option"
)

// Client holds the services of the Orb API. It is safe for concurrent use.
type Client struct {
	Options                []option.RequestOption
	TopLevel               TopLevelService
	Coupons                CouponService
	Customers              CustomerService
	Invoices               InvoiceService
	Prices                 PriceService
	Plans                  PlanService
	Subscriptions          SubscriptionService
	DimensionalPriceGroups DimensionalPriceGroupService
	Events                 EventService
}

// NewClient returns a client configured from the environment (ORB_API_KEY,
// ORB_BASE_URL, ORB_VALIDATE_RESPONSES) and then from opts.
func NewClient(opts ...option.RequestOption) (r *Client) {
	opts = slices.Concat(option.DefaultClientOptions(), opts)

	r = &Client{Options: opts}
	r.TopLevel = NewTopLevelService(opts...)
	r.Coupons = NewCouponService(opts...)
	r.Customers = NewCustomerService(opts...)
	r.Invoices = NewInvoiceService(opts...)
	r.Prices = NewPriceService(opts...)
	r.Plans = NewPlanService(opts...)
	r.Subscriptions = NewSubscriptionService(opts...)
	r.DimensionalPriceGroups = NewDimensionalPriceGroupService(opts...)
	r.Events = NewEventService(opts...)
	return
}

// Execute sends a request to an arbitrary path, for endpoints this package does
// not wrap. params is encoded as the query (if it has a URLQuery method) and,
// for methods other than GET and DELETE, as the JSON body. The response is
// decoded into res, which may be nil.
func (r *Client) Execute(ctx context.Context, method, path string, params any, res any, opts ...option.RequestOption) error {
	opts = slices.Concat(r.Options, opts)
	return requestconfig.ExecuteNewRequest(ctx, method, path, params, res, opts...)
}

// Get sends a GET request. See [Client.Execute].
func (r *Client) Get(ctx context.Context, path string, params any, res any, opts ...option.RequestOption) error {
	return r.Execute(ctx, http.MethodGet, path, params, res, opts...)
}

// Post sends a POST request. See [Client.Execute].
func (r *Client) Post(ctx context.Context, path string, params any, res any, opts ...option.RequestOption) error {
	return r.Execute(ctx, http.MethodPost, path, params, res, opts...)
}

// Put sends a PUT request. See [Client.Execute].
func (r *Client) Put(ctx context.Context, path string, params any, res any, opts ...option.RequestOption) error {
	return r.Execute(ctx, http.MethodPut, path, params, res, opts...)
}

// Delete sends a DELETE request. See [Client.Execute].
func (r *Client) Delete(ctx context.Context, path string, params any, res any, opts ...option.RequestOption) error {
	return r.Execute(ctx, http.MethodDelete, path, params, res, opts...)
}
