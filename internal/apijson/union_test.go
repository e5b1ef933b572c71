package apijson

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type testDiscount interface{ isTestDiscount() }

type testPercentage struct {
	Type       string  `json:"type"`
	Percentage float64 `json:"percentage"`
}

func (testPercentage) isTestDiscount() {}

type testAmount struct {
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

func (testAmount) isTestDiscount() {}

type testUnknown struct{ Raw json.RawMessage }

func (testUnknown) isTestDiscount() {}

func discountUnion() *Union[testDiscount] {
	return NewUnion("Discount", "discount_type",
		Variant[testPercentage, testDiscount]("percentage"),
		Variant[testAmount, testDiscount]("amount"),
	)
}

func TestUnion_Dispatch(t *testing.T) {
	u := discountUnion()

	got, err := u.Decode([]byte(`{"discount_type":"percentage","percentage":0.25}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := got.(testPercentage)
	if !ok {
		t.Fatalf("expected testPercentage, got %T", got)
	}
	if p.Percentage != 0.25 {
		t.Errorf("expected 0.25, got %v", p.Percentage)
	}

	got, err = u.Decode([]byte(`{"discount_type":"amount","amount":"5.00"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a, ok := got.(testAmount); !ok || a.Amount != "5.00" {
		t.Errorf("expected amount 5.00, got %#v", got)
	}
}

func TestUnion_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"unmatched", `{"discount_type":"unknown_value"}`, `unmatched discount_type "unknown_value"`},
		{"missing", `{"percentage":1}`, "missing discount_type"},
		{"not a string", `{"discount_type":3}`, "discount_type is 3, not a string"},
		{"not an object", `[1,2]`, "expected a JSON object"},
		{"variant shape", `{"discount_type":"percentage","percentage":"lots"}`, "cannot decode Discount"},
	}

	u := discountUnion()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := u.Decode([]byte(tt.input))
			var derr *DecodeError
			if !errors.As(err, &derr) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestUnion_UnmatchedListsVariants(t *testing.T) {
	_, err := discountUnion().Decode([]byte(`{"discount_type":"unknown_value"}`))
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if derr.Value != "unknown_value" {
		t.Errorf("expected value unknown_value, got %q", derr.Value)
	}
	if len(derr.Variants) != 2 || derr.Variants[0] != "percentage" || derr.Variants[1] != "amount" {
		t.Errorf("expected both variants, got %v", derr.Variants)
	}
}

func TestUnion_UnknownFallback(t *testing.T) {
	u := discountUnion().WithUnknown(func(raw json.RawMessage) testDiscount {
		return testUnknown{Raw: raw}
	})

	input := `{"discount_type":"loyalty","points":12}`
	got, err := u.Decode([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unk, ok := got.(testUnknown)
	if !ok {
		t.Fatalf("expected testUnknown, got %T", got)
	}
	if string(unk.Raw) != input {
		t.Errorf("expected raw %s, got %s", input, unk.Raw)
	}

	if _, err := u.Decode([]byte(`{"discount_type":"amount","amount":"1"}`)); err != nil {
		t.Errorf("known variants must still decode, got %v", err)
	}
}

func TestVariant_PanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a type outside the union")
		}
	}()
	Variant[string, testDiscount]("bad")
}

type testScalar interface{ isTestScalar() }

type testString string

func (testString) isTestScalar() {}

type testNumber float64

func (testNumber) isTestScalar() {}

func TestTrial(t *testing.T) {
	trial := TryEach("Scalar",
		Try("string", func(v string) testScalar { return testString(v) }),
		Try("number", func(v float64) testScalar { return testNumber(v) }),
	)

	got, err := trial.Decode([]byte(`"eu-west"`))
	if err != nil || got != testString("eu-west") {
		t.Errorf("expected string candidate, got %v, %v", got, err)
	}

	got, err = trial.Decode([]byte(`4.5`))
	if err != nil || got != testNumber(4.5) {
		t.Errorf("expected number candidate, got %v, %v", got, err)
	}

	_, err = trial.Decode([]byte(`{"a":1}`))
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"as string:", "as number:", "variants: string, number"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error containing %q, got %q", want, msg)
		}
	}

	if _, err := trial.Decode([]byte(`null`)); err == nil {
		t.Error("expected null to be rejected")
	}
}
