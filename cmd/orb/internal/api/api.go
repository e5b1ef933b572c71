// Package api implements the orb commands that call the Orb API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/broady/orb"
)

// Env is bound into every command's Run method.
type Env struct {
	Context context.Context
	Client  *orb.Client
	Out     io.Writer
}

// Print writes v as indented JSON.
func (e *Env) Print(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintf(e.Out, "%s\n", data)
	return err
}

// ListFlags are shared by every list command.
type ListFlags struct {
	Limit  int64  `help:"Items per page (1-100)." default:"20"`
	Cursor string `help:"Cursor from a previous page's pagination_metadata."`
	All    bool   `help:"Follow cursors and print every item as one array."`
}

func (f ListFlags) limit() *int64 {
	if f.Limit == 0 {
		return nil
	}
	return orb.Int(f.Limit)
}

func (f ListFlags) cursor() *string {
	if f.Cursor == "" {
		return nil
	}
	return orb.String(f.Cursor)
}

// printList prints page, or with --all every item from page onwards.
func printList[T any](env *Env, flags ListFlags, page *orb.Page[T], err error) error {
	if err != nil {
		return err
	}
	if !flags.All {
		return env.Print(page)
	}
	items := []T{}
	for item, err := range page.All(env.Context) {
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	return env.Print(items)
}

type PingCmd struct{}

func (c *PingCmd) Run(env *Env) error {
	res, err := env.Client.TopLevel.Ping(env.Context)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(env.Out, res.Response)
	return err
}

type CustomersCmd struct {
	List CustomersListCmd `cmd:"" help:"List customers, newest first."`
	Get  CustomersGetCmd  `cmd:"" help:"Fetch one customer."`
}

type CustomersListCmd struct {
	ListFlags `embed:""`
}

func (c *CustomersListCmd) Run(env *Env) error {
	page, err := env.Client.Customers.List(env.Context, orb.CustomerListParams{
		Limit:  c.limit(),
		Cursor: c.cursor(),
	})
	return printList(env, c.ListFlags, page, err)
}

type CustomersGetCmd struct {
	ID       string `arg:"" help:"Customer ID, or external customer ID with --external."`
	External bool   `help:"Look the customer up by external customer ID." short:"x"`
}

func (c *CustomersGetCmd) Run(env *Env) error {
	var (
		res *orb.Customer
		err error
	)
	if c.External {
		res, err = env.Client.Customers.FetchByExternalID(env.Context, c.ID)
	} else {
		res, err = env.Client.Customers.Fetch(env.Context, c.ID)
	}
	if err != nil {
		return err
	}
	return env.Print(res)
}

type InvoicesCmd struct {
	List InvoicesListCmd `cmd:"" help:"List invoices."`
	Get  InvoicesGetCmd  `cmd:"" help:"Fetch one invoice."`
}

type InvoicesListCmd struct {
	ListFlags      `embed:""`
	CustomerID     string   `help:"Only invoices for this customer." name:"customer-id"`
	SubscriptionID string   `help:"Only invoices for this subscription." name:"subscription-id"`
	Status         []string `help:"Only invoices in these statuses (draft, issued, paid, synced, void)."`
}

func (c *InvoicesListCmd) Run(env *Env) error {
	params := orb.InvoiceListParams{
		Limit:  c.limit(),
		Cursor: c.cursor(),
		Status: c.Status,
	}
	if c.CustomerID != "" {
		params.CustomerID = orb.String(c.CustomerID)
	}
	if c.SubscriptionID != "" {
		params.SubscriptionID = orb.String(c.SubscriptionID)
	}
	page, err := env.Client.Invoices.List(env.Context, params)
	return printList(env, c.ListFlags, page, err)
}

type InvoicesGetCmd struct {
	ID string `arg:"" help:"Invoice ID."`
}

func (c *InvoicesGetCmd) Run(env *Env) error {
	res, err := env.Client.Invoices.Fetch(env.Context, c.ID)
	if err != nil {
		return err
	}
	return env.Print(res)
}

type SubscriptionsCmd struct {
	List SubscriptionsListCmd `cmd:"" help:"List subscriptions."`
	Get  SubscriptionsGetCmd  `cmd:"" help:"Fetch one subscription."`
}

type SubscriptionsListCmd struct {
	ListFlags  `embed:""`
	CustomerID []string `help:"Only subscriptions for these customers." name:"customer-id"`
	Status     string   `help:"Only subscriptions in this status (active, ended, upcoming)."`
}

func (c *SubscriptionsListCmd) Run(env *Env) error {
	params := orb.SubscriptionListParams{
		Limit:      c.limit(),
		Cursor:     c.cursor(),
		CustomerID: c.CustomerID,
	}
	if c.Status != "" {
		params.Status = orb.String(c.Status)
	}
	page, err := env.Client.Subscriptions.List(env.Context, params)
	return printList(env, c.ListFlags, page, err)
}

type SubscriptionsGetCmd struct {
	ID string `arg:"" help:"Subscription ID."`
}

func (c *SubscriptionsGetCmd) Run(env *Env) error {
	res, err := env.Client.Subscriptions.Fetch(env.Context, c.ID)
	if err != nil {
		return err
	}
	return env.Print(res)
}

type PricesCmd struct {
	List PricesListCmd `cmd:"" help:"List prices."`
	Get  PricesGetCmd  `cmd:"" help:"Fetch one price."`
}

type PricesListCmd struct {
	ListFlags `embed:""`
}

func (c *PricesListCmd) Run(env *Env) error {
	page, err := env.Client.Prices.List(env.Context, orb.PriceListParams{
		Limit:  c.limit(),
		Cursor: c.cursor(),
	})
	return printList(env, c.ListFlags, page, err)
}

type PricesGetCmd struct {
	ID       string `arg:"" help:"Price ID, or external price ID with --external."`
	External bool   `help:"Look the price up by external price ID." short:"x"`
}

func (c *PricesGetCmd) Run(env *Env) error {
	var (
		res *orb.Price
		err error
	)
	if c.External {
		res, err = env.Client.Prices.ExternalPriceID.Fetch(env.Context, c.ID)
	} else {
		res, err = env.Client.Prices.Fetch(env.Context, c.ID)
	}
	if err != nil {
		return err
	}
	return env.Print(res)
}

type CouponsCmd struct {
	List CouponsListCmd `cmd:"" help:"List coupons."`
}

type CouponsListCmd struct {
	ListFlags      `embed:""`
	RedemptionCode string `help:"Only the coupon with this redemption code." name:"redemption-code"`
	ShowArchived   bool   `help:"Include archived coupons." name:"show-archived"`
}

func (c *CouponsListCmd) Run(env *Env) error {
	params := orb.CouponListParams{
		Limit:  c.limit(),
		Cursor: c.cursor(),
	}
	if c.RedemptionCode != "" {
		params.RedemptionCode = orb.String(c.RedemptionCode)
	}
	if c.ShowArchived {
		params.ShowArchived = orb.Bool(true)
	}
	page, err := env.Client.Coupons.List(env.Context, params)
	return printList(env, c.ListFlags, page, err)
}
