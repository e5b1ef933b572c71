package apijson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/tidwall/gjson"
)

// Case is one variant of a discriminated union.
type Case[U any] struct {
	value  string
	name   string
	decode func([]byte) (U, error)
}

// Variant declares that objects whose discriminator equals value decode as V.
// V must implement the union interface U.
func Variant[V, U any](value string) Case[U] {
	name := reflect.TypeFor[V]().Name()
	if _, ok := any(*new(V)).(U); !ok {
		panic(fmt.Sprintf("apijson: %s does not implement %s", name, reflect.TypeFor[U]()))
	}
	return Case[U]{
		value: value,
		name:  name,
		decode: func(data []byte) (U, error) {
			var v V
			if err := json.Unmarshal(data, &v); err != nil {
				var zero U
				return zero, err
			}
			return any(v).(U), nil
		},
	}
}

// Union decodes JSON objects into one of several variants, chosen by the
// string value of a fixed discriminator field.
type Union[U any] struct {
	name    string
	field   string
	cases   map[string]Case[U]
	values  []string
	unknown func(json.RawMessage) U
}

// NewUnion returns a decoder for the union named name, dispatching on field.
func NewUnion[U any](name, field string, cases ...Case[U]) *Union[U] {
	u := &Union[U]{
		name:  name,
		field: field,
		cases: make(map[string]Case[U], len(cases)),
	}
	for _, c := range cases {
		if _, dup := u.cases[c.value]; dup {
			panic(fmt.Sprintf("apijson: duplicate %s %q in %s", field, c.value, name))
		}
		u.cases[c.value] = c
		u.values = append(u.values, c.value)
	}
	return u
}

// WithUnknown makes objects with a missing or unrecognized discriminator decode
// through fn instead of failing. fn receives the raw JSON unchanged.
func (u *Union[U]) WithUnknown(fn func(json.RawMessage) U) *Union[U] {
	u.unknown = fn
	return u
}

// Decode selects the variant for data and decodes it.
func (u *Union[U]) Decode(data []byte) (U, error) {
	var zero U

	var err error
	var value string
	parsed := gjson.ParseBytes(data)
	switch disc := parsed.Get(u.field); {
	case !gjson.ValidBytes(data) || !parsed.IsObject():
		err = errors.New("expected a JSON object")
	case !disc.Exists():
		err = fmt.Errorf("missing %s", u.field)
	case disc.Type != gjson.String:
		err = fmt.Errorf("%s is %s, not a string", u.field, disc.Raw)
	default:
		value = disc.Str
		c, ok := u.cases[value]
		if !ok {
			err = fmt.Errorf("unmatched %s %q", u.field, value)
			break
		}
		v, derr := c.decode(data)
		if derr != nil {
			return zero, &DecodeError{
				Type:          u.name,
				Discriminator: u.field,
				Value:         value,
				Variants:      []string{c.name},
				Err:           derr,
			}
		}
		return v, nil
	}

	if u.unknown != nil {
		return u.unknown(json.RawMessage(bytes.Clone(data))), nil
	}
	return zero, &DecodeError{
		Type:          u.name,
		Discriminator: u.field,
		Value:         value,
		Variants:      u.values,
		Err:           err,
	}
}

// Candidate is one alternative of a [Trial] union.
type Candidate[U any] struct {
	name   string
	decode func([]byte) (U, error)
}

// Try declares a trial alternative that decodes as V and is wrapped into U.
func Try[V, U any](name string, wrap func(V) U) Candidate[U] {
	return Candidate[U]{
		name: name,
		decode: func(data []byte) (U, error) {
			var v V
			if err := json.Unmarshal(data, &v); err != nil {
				var zero U
				return zero, err
			}
			return wrap(v), nil
		},
	}
}

// Trial decodes unions that have no discriminator by trying each candidate
// in priority order and keeping the first that decodes.
type Trial[U any] struct {
	name       string
	candidates []Candidate[U]
}

// TryEach returns a trial decoder for the union named name.
func TryEach[U any](name string, candidates ...Candidate[U]) *Trial[U] {
	return &Trial[U]{name: name, candidates: candidates}
}

// Decode returns the first candidate that decodes data. When every candidate
// fails, the error carries all of their failures.
func (t *Trial[U]) Decode(data []byte) (U, error) {
	var zero U
	names := make([]string, len(t.candidates))
	for i, c := range t.candidates {
		names[i] = c.name
	}
	if IsNull(data) {
		return zero, &DecodeError{Type: t.name, Variants: names, Err: errors.New("value is null")}
	}

	errs := make([]error, 0, len(t.candidates))
	for _, c := range t.candidates {
		v, err := c.decode(data)
		if err == nil {
			return v, nil
		}
		errs = append(errs, fmt.Errorf("as %s: %w", c.name, err))
	}
	return zero, &DecodeError{Type: t.name, Variants: names, Err: errors.Join(errs...)}
}
