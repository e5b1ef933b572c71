// Package apiquery encodes params structs into URL query strings.
//
// Fields are named by their `query` tag. Optional fields are pointers tagged
// omitempty, so a nil pointer is left out of the query entirely.
package apiquery

import (
	"net/url"
	"reflect"
	"time"

	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"
)

var encoder = schema.NewEncoder()

func init() {
	encoder.SetAliasTag("query")
	encoder.RegisterEncoder(time.Time{}, func(v reflect.Value) string {
		return formatTime(v.Interface().(time.Time))
	})
	encoder.RegisterEncoder(&time.Time{}, func(v reflect.Value) string {
		if v.IsNil() {
			return ""
		}
		return formatTime(*v.Interface().(*time.Time))
	})
	encoder.RegisterEncoder(decimal.Decimal{}, func(v reflect.Value) string {
		return v.Interface().(decimal.Decimal).String()
	})
	encoder.RegisterEncoder(&decimal.Decimal{}, func(v reflect.Value) string {
		if v.IsNil() {
			return ""
		}
		return v.Interface().(*decimal.Decimal).String()
	})
}

// RegisterEncoder registers encode for values of the same type as value.
// Registration must happen during package initialization.
func RegisterEncoder(value any, encode func(reflect.Value) string) {
	encoder.RegisterEncoder(value, encode)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Marshal encodes params into url.Values. params must be a struct or a
// pointer to one.
func Marshal(params any) (url.Values, error) {
	values := make(url.Values)
	if err := encoder.Encode(params, values); err != nil {
		return nil, err
	}
	// Empty slices without omitempty come back as keys with no values.
	for k, v := range values {
		if len(v) == 0 {
			delete(values, k)
		}
	}
	return values, nil
}
