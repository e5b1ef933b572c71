package orb

import (
	"encoding/json"
	"time"

	"github.com/broady/orb/internal/apijson"
)

// Field is a request body value that tells "not set" apart from "set to null".
//
// The zero value is unset and is left out of the request body entirely, which
// leaves the server-side value unchanged on update. [Null] sends an explicit
// JSON null, which clears it. [F] sends a value.
//
//	params := orb.CustomerUpdateParams{
//	    Email:          orb.F("billing@example.com"),
//	    BillingAddress: orb.Null[orb.AddressParam](),
//	}
//
// Body params declare their fields as Field with the omitzero option.
type Field[T any] struct {
	value T
	set   bool
	null  bool
}

// F returns a Field set to v.
func F[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Null returns a Field explicitly set to JSON null.
func Null[T any]() Field[T] {
	return Field[T]{set: true, null: true}
}

// IsZero reports whether the field is unset. encoding/json uses it for omitzero.
func (f Field[T]) IsZero() bool { return !f.set }

// IsSet reports whether the field was set, to a value or to null.
func (f Field[T]) IsSet() bool { return f.set }

// IsNull reports whether the field was set to null.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// Get returns the value and whether the field holds one.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set && !f.null
}

// Value returns the value, or the zero value of T.
func (f Field[T]) Value() T { return f.value }

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if apijson.IsNull(data) {
		*f = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = F(v)
	return nil
}

func (f Field[T]) String() string {
	switch {
	case !f.set:
		return "<unset>"
	case f.null:
		return "null"
	}
	data, err := json.Marshal(f.value)
	if err != nil {
		return "<invalid>"
	}
	return string(data)
}

// String returns a pointer to v, for optional query and response fields.
func String(v string) *string { return &v }

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Time returns a pointer to v.
func Time(v time.Time) *time.Time { return &v }
