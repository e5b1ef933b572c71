package orb

import (
	"context"
	"iter"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/broady/orb/internal/apijson"
	"github.com/broady/orb/internal/requestconfig"
	"github.com/broady/orb/option"
)

// Page is one page of a list response.
//
//	page, err := client.Customers.List(ctx, orb.CustomerListParams{Limit: orb.Int(50)})
//	for err == nil && page.HasNext() {
//	    page, err = page.Next(ctx)
//	}
//
// Use [Page.All] to range over every item across pages.
type Page[T any] struct {
	Data               []T                `json:"data,required"`
	PaginationMetadata PaginationMetadata `json:"pagination_metadata,required"`
	JSON               apijson.Fields     `json:"-"`

	next func(ctx context.Context, cursor string) (*Page[T], error)
}

type pageShadow[T any] Page[T]

func (r *Page[T]) UnmarshalJSON(data []byte) error {
	return apijson.Unmarshal(data, (*pageShadow[T])(r), &r.JSON)
}

func (r Page[T]) MarshalJSON() ([]byte, error) {
	return apijson.Marshal((*pageShadow[T])(&r), r.JSON)
}

// Validate checks the page and its items strictly. See [option.WithResponseValidation].
func (r *Page[T]) Validate() error { return apijson.Validate(r) }

// HasNext reports whether a further page exists: the page has items and its
// metadata carries a non-empty next_cursor.
func (r *Page[T]) HasNext() bool {
	return r != nil && len(r.Data) > 0 && r.cursor() != ""
}

func (r *Page[T]) cursor() string {
	c := gjson.Get(r.PaginationMetadata.JSON.Raw(), "next_cursor")
	if c.Type != gjson.String {
		return ""
	}
	return c.Str
}

// Next fetches the following page with the same params, except for the cursor.
// It returns [ErrNoNextPage] when [Page.HasNext] is false.
func (r *Page[T]) Next(ctx context.Context) (*Page[T], error) {
	if !r.HasNext() || r.next == nil {
		return nil, ErrNoNextPage
	}
	return r.next(ctx, r.cursor())
}

// All returns an iterator over the items of this page and every page after it.
// Iteration stops at the first error, which is yielded with a zero item.
func (r *Page[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for page := r; page != nil; {
			for _, item := range page.Data {
				if !yield(item, nil) {
					return
				}
			}
			if !page.HasNext() {
				return
			}
			next, err := page.Next(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			page = next
		}
	}
}

// PaginationMetadata describes where a list response continues.
type PaginationMetadata struct {
	HasMore    bool           `json:"has_more"`
	NextCursor *string        `json:"next_cursor"`
	JSON       apijson.Fields `json:"-"`
}

func (r *PaginationMetadata) UnmarshalJSON(data []byte) error {
	type shadow PaginationMetadata
	if err := apijson.Unmarshal(data, (*shadow)(r), &r.JSON); err != nil {
		// Unreadable metadata means there is no next page, not a failed call.
		*r = PaginationMetadata{}
	}
	return nil
}

func (r PaginationMetadata) MarshalJSON() ([]byte, error) {
	type shadow PaginationMetadata
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

// cursorParams are list params that can be re-sent from another cursor.
type cursorParams[P any] interface {
	requestconfig.URLQuerier
	withCursor(cursor string) P
}

// getPage lists path and wires the result so that Next repeats the call.
func getPage[T any, P cursorParams[P]](ctx context.Context, path string, params P, opts []option.RequestOption) (*Page[T], error) {
	var res *Page[T]
	if err := requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, params, &res, opts...); err != nil {
		return nil, err
	}
	if res == nil {
		res = &Page[T]{}
	}
	res.next = func(ctx context.Context, cursor string) (*Page[T], error) {
		return getPage[T](ctx, path, params.withCursor(cursor), opts)
	}
	return res, nil
}
