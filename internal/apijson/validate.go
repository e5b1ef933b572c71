package apijson

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report wire names rather than Go field names.
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		for _, key := range []string{"json", "query"} {
			name, _, _ := strings.Cut(sf.Tag.Get(key), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return ""
	})
	return v
}

var fieldsType = reflect.TypeFor[Fields]()

// variantHolder is implemented by union wrappers.
type variantHolder interface {
	Variant() any
}

// Validate checks a decoded model strictly. Keys tagged `json:",required"` must
// have been sent with a non-null value, and `validate:"..."` tags must pass.
// It walks nested models, slices, maps, and union variants, and reports every
// problem it finds.
//
// Decoding never runs these checks, so responses that drift from the documented
// shape still decode.
func Validate(v any) error {
	rv := reflect.ValueOf(v)
	var problems []Problem
	walk(rv, "", &problems)
	if len(problems) == 0 {
		return nil
	}
	name := "value"
	if rv.IsValid() {
		t := rv.Type()
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		name = t.Name()
	}
	return &ValidationError{Type: name, Problems: problems}
}

func walk(v reflect.Value, path string, problems *[]Problem) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return
	}

	if v.CanInterface() {
		if u, ok := v.Interface().(variantHolder); ok {
			if variant := u.Variant(); variant != nil {
				walk(reflect.ValueOf(variant), path, problems)
			}
			return
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		walkStruct(v, path, problems)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walk(v.Index(i), fmt.Sprintf("%s[%d]", path, i), problems)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			walk(iter.Value(), join(path, fmt.Sprint(iter.Key().Interface())), problems)
		}
	}
}

func walkStruct(v reflect.Value, path string, problems *[]Problem) {
	t := v.Type()
	fields := jsonFields(t)

	var meta Fields
	hasMeta := false
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Type == fieldsType {
			meta = v.Field(i).Interface().(Fields)
			hasMeta = true
			break
		}
	}

	for _, f := range fields {
		fv, err := v.FieldByIndexErr(f.index)
		if err != nil {
			// nil embedded pointer
			continue
		}
		fpath := join(path, f.key)

		if f.required && hasMeta && meta.Decoded() && !meta.Present(f.key) {
			*problems = append(*problems, Problem{Path: fpath, Reason: "required"})
			continue
		}

		if f.validate != "" && fv.CanInterface() {
			if err := validate.Var(fv.Interface(), f.validate); err != nil {
				var valErrs validator.ValidationErrors
				if errors.As(err, &valErrs) {
					for _, ve := range valErrs {
						*problems = append(*problems, Problem{Path: fpath, Reason: formatValidationError(ve)})
					}
				} else {
					*problems = append(*problems, Problem{Path: fpath, Reason: err.Error()})
				}
			}
		}

		walk(fv, fpath, problems)
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// CheckRequired checks params before they are sent. A field tagged
// `json:"x,required"` must be set: non-empty for strings, non-nil for pointers,
// slices and maps, non-zero for times, and set for optional-field wrappers and
// union values. Numbers and booleans always count as set.
// Values that are not structs pass unchecked.
func CheckRequired(params any) error {
	return checkParams(params, false)
}

// ValidateParams runs [CheckRequired] and also checks `validate:"..."` tags,
// including those on union variants.
func ValidateParams(params any) error {
	return checkParams(params, true)
}

func checkParams(params any, strict bool) error {
	rv := reflect.ValueOf(params)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var problems []Problem
	if err := walkParams(rv, "", strict, &problems); err != nil {
		return err
	}
	if strict {
		if err := checkStruct(rv, "", &problems); err != nil {
			return err
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Type: rv.Type().Name(), Problems: problems}
}

// checkStruct runs the validator over a struct and the structs nested in it.
// Union variants are out of its reach, so walkParams calls it for each one.
func checkStruct(v reflect.Value, path string, problems *[]Problem) error {
	err := validate.Struct(v.Interface())
	if err == nil {
		return nil
	}
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	for _, ve := range valErrs {
		// Namespace starts with the struct name.
		_, rel, _ := strings.Cut(ve.Namespace(), ".")
		*problems = append(*problems, Problem{Path: join(path, rel), Reason: formatValidationError(ve)})
	}
	return nil
}

// setter is implemented by optional body fields that know whether they were set.
type setter interface {
	IsSet() bool
}

func walkParams(v reflect.Value, path string, strict bool, problems *[]Problem) error {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	if v.CanInterface() {
		if u, ok := v.Interface().(variantHolder); ok {
			variant := reflect.ValueOf(u.Variant())
			if variant.Kind() != reflect.Struct {
				return nil
			}
			if err := walkParams(variant, path, strict, problems); err != nil {
				return err
			}
			if strict {
				return checkStruct(variant, path, problems)
			}
			return nil
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		for _, f := range jsonFields(v.Type()) {
			fv, err := v.FieldByIndexErr(f.index)
			if err != nil {
				continue
			}
			fpath := join(path, f.key)
			if f.required && unset(fv) {
				*problems = append(*problems, Problem{Path: fpath, Reason: "required"})
				continue
			}
			if err := walkParams(fv, fpath, strict, problems); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := walkParams(v.Index(i), fmt.Sprintf("%s[%d]", path, i), strict, problems); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := walkParams(iter.Value(), join(path, fmt.Sprint(iter.Key().Interface())), strict, problems); err != nil {
				return err
			}
		}
	}
	return nil
}

// unset reports whether a required params field would be left out of the request.
func unset(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return v.IsNil()
	case reflect.Struct:
		if !v.CanInterface() {
			return false
		}
		switch x := v.Interface().(type) {
		case time.Time:
			return x.IsZero()
		case variantHolder:
			return x.Variant() == nil
		case setter:
			return !x.IsSet()
		}
	}
	return false
}
