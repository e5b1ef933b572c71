// Package apijson decodes and encodes API models.
//
// Models are plain structs decoded eagerly. Each model carries a [Fields]
// value recording which keys the server sent and any keys the struct does not
// declare, so that unknown fields survive a decode/encode round trip.
//
// A model wires itself up with a shadow type, which has the same fields but
// none of the methods:
//
//	func (r *Coupon) UnmarshalJSON(data []byte) error {
//	    type shadow Coupon
//	    return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
//	}
//
//	func (r Coupon) MarshalJSON() ([]byte, error) {
//	    type shadow Coupon
//	    return apijson.Marshal((*shadow)(&r), r.JSON)
//	}
package apijson

import (
	"bytes"
	"encoding/json"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Fields holds JSON metadata for a decoded model.
// The zero value describes a model that was built in code rather than decoded.
type Fields struct {
	raw     string
	present map[string]bool // key -> value was not null
	extra   map[string]json.RawMessage
}

// Raw returns the JSON the model was decoded from, or "" if it was not decoded.
func (f Fields) Raw() string { return f.raw }

// Decoded reports whether the model came from a JSON object.
func (f Fields) Decoded() bool { return f.raw != "" && f.raw != "null" }

// Present reports whether key was sent with a non-null value.
func (f Fields) Present(key string) bool { return f.present[key] }

// Null reports whether key was sent as an explicit null.
func (f Fields) Null(key string) bool {
	nonNull, ok := f.present[key]
	return ok && !nonNull
}

// Extra returns the keys the model does not declare, with their raw values.
func (f Fields) Extra() map[string]json.RawMessage {
	return maps.Clone(f.extra)
}

// SetExtra adds or replaces an undeclared key. It is written out by [Marshal].
func (f *Fields) SetExtra(key string, value json.RawMessage) {
	if f.extra == nil {
		f.extra = make(map[string]json.RawMessage)
	}
	f.extra[key] = value
}

// Equal compares the extra fields only. Presence and raw text describe how a
// value arrived, not what it is, so two models with the same declared fields
// and the same extras are equal.
func (f Fields) Equal(o Fields) bool {
	if len(f.extra) != len(o.extra) {
		return false
	}
	for k, v := range f.extra {
		ov, ok := o.extra[k]
		if !ok || !jsonEqual(v, ov) {
			return false
		}
	}
	return true
}

// Unmarshal decodes data into shadow (a pointer to a model's shadow type) and
// records key metadata into meta.
func Unmarshal(data []byte, shadow any, meta *Fields) error {
	if err := json.Unmarshal(data, shadow); err != nil {
		return err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	known := knownKeys(reflect.TypeOf(shadow).Elem())
	f := Fields{raw: string(data)}
	if len(obj) > 0 {
		f.present = make(map[string]bool, len(obj))
	}
	for k, v := range obj {
		key, ok := canonicalKey(known, k)
		if !ok {
			f.present[k] = !IsNull(v)
			f.SetExtra(k, v)
			continue
		}
		f.present[key] = f.present[key] || !IsNull(v)
	}
	*meta = f
	return nil
}

// Marshal encodes shadow and appends the extra fields recorded in meta.
func Marshal(shadow any, meta Fields) ([]byte, error) {
	data, err := json.Marshal(shadow)
	if err != nil || len(meta.extra) == 0 {
		return data, err
	}
	if len(data) < 2 || data[len(data)-1] != '}' {
		return data, nil
	}

	buf := bytes.NewBuffer(data[:len(data)-1])
	first := len(data) == 2
	for _, k := range slices.Sorted(maps.Keys(meta.extra)) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(meta.extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// IsNull reports whether data is the JSON literal null.
func IsNull(data []byte) bool {
	return string(bytes.TrimSpace(data)) == "null"
}

var knownKeysCache sync.Map // reflect.Type -> map[string]bool

// knownKeys returns the JSON keys declared by a struct type, including keys
// promoted from anonymous embedded structs.
func knownKeys(t reflect.Type) map[string]bool {
	if cached, ok := knownKeysCache.Load(t); ok {
		return cached.(map[string]bool)
	}
	keys := make(map[string]bool)
	for _, f := range jsonFields(t) {
		keys[f.key] = true
	}
	knownKeysCache.Store(t, keys)
	return keys
}

// canonicalKey finds the declared key that k decodes into. Like encoding/json,
// an exact match wins and otherwise keys match case-insensitively.
func canonicalKey(known map[string]bool, k string) (string, bool) {
	if known[k] {
		return k, true
	}
	for key := range known {
		if strings.EqualFold(key, k) {
			return key, true
		}
	}
	return "", false
}

type jsonField struct {
	key      string
	index    []int
	required bool
	validate string
}

// jsonFields lists the exported, JSON-visible fields of a struct type.
func jsonFields(t reflect.Type) []jsonField {
	if t.Kind() != reflect.Struct {
		return nil
	}
	var out []jsonField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				for _, inner := range jsonFields(ft) {
					inner.index = append([]int{i}, inner.index...)
					out = append(out, inner)
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		out = append(out, jsonField{
			key:      name,
			index:    []int{i},
			required: hasOption(opts, "required"),
			validate: sf.Tag.Get("validate"),
		})
	}
	return out
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

func jsonEqual(a, b json.RawMessage) bool {
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return bytes.Equal(a, b)
	}
	return reflect.DeepEqual(av, bv)
}
