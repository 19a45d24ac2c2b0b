package entity

import "testing"

func findSpan(spans []Span, typ Type) *Span {
	for i := range spans {
		if spans[i].Type == typ {
			return &spans[i]
		}
	}
	return nil
}

func TestDetectContactBlock(t *testing.T) {
	text := "Contact us at 555-123-4567 or sales@example.com. We are located at 15 Henry St, Suite 204."
	spans := Detect(text)

	phone := findSpan(spans, TypePhone)
	if phone == nil {
		t.Fatalf("expected phone span, got %+v", spans)
	}
	if phone.Value != "555-123-4567" {
		t.Errorf("phone value = %q", phone.Value)
	}

	email := findSpan(spans, TypeEmail)
	if email == nil || email.Value != "sales@example.com" {
		t.Errorf("email span = %+v", email)
	}

	addr := findSpan(spans, TypeAddress)
	if addr == nil {
		t.Fatalf("expected address span, got %+v", spans)
	}
	if addr.Value != "15 Henry St, Suite 204" {
		t.Errorf("address value = %q", addr.Value)
	}
}

func TestDetectPriorityClaimsRange(t *testing.T) {
	// The digits inside the email and phone must not also surface as
	// standalone number spans.
	spans := Detect("Call 555-123-4567 or email info24@shop.example.com")
	if n := findSpan(spans, TypeNumber); n != nil {
		t.Errorf("unexpected number span %+v", *n)
	}
	if findSpan(spans, TypePhone) == nil {
		t.Errorf("missing phone span: %+v", spans)
	}
	if findSpan(spans, TypeEmail) == nil {
		t.Errorf("missing email span: %+v", spans)
	}
}

func TestDetectPriceAndDateRange(t *testing.T) {
	spans := Detect("Available March 15 - March 22 for $1,250.00 per month.")
	d := findSpan(spans, TypeDate)
	if d == nil {
		t.Fatalf("expected date span, got %+v", spans)
	}
	if d.Value != "March 15 - March 22" {
		t.Errorf("date range value = %q", d.Value)
	}
	p := findSpan(spans, TypePrice)
	if p == nil {
		t.Fatalf("expected price span, got %+v", spans)
	}
	if p.Value != "$1,250.00 per month" {
		t.Errorf("price value = %q", p.Value)
	}
}

func TestDetectURLAndSKU(t *testing.T) {
	spans := Detect("See https://example.com/listings/42 for unit APT-1203.")
	u := findSpan(spans, TypeURL)
	if u == nil || u.Value != "https://example.com/listings/42" {
		t.Errorf("url span = %+v", u)
	}
	if findSpan(spans, TypeSKU) == nil {
		t.Errorf("missing sku span: %+v", spans)
	}
}

func TestDetectSortedByStart(t *testing.T) {
	spans := Detect("Open 9:00 AM - 5:00 PM, call 555-867-5309, visit 100 Main Street.")
	for i := 1; i < len(spans); i++ {
		if spans[i].Start < spans[i-1].Start {
			t.Fatalf("spans out of order: %+v", spans)
		}
	}
}

func TestSafeSplit(t *testing.T) {
	spans := []Span{{Type: TypePhone, Value: "555-123-4567", Start: 20, End: 32}}

	if SafeSplit(spans, 25, 10) {
		t.Error("split inside span reported safe")
	}
	if SafeSplit(spans, 15, 10) {
		t.Error("split inside padding reported safe")
	}
	if !SafeSplit(spans, 5, 10) {
		t.Error("split clear of padding reported unsafe")
	}
	if !SafeSplit(spans, 50, 10) {
		t.Error("split past span reported unsafe")
	}
}

func TestHighValue(t *testing.T) {
	for _, typ := range []Type{TypeAddress, TypePhone, TypeEmail, TypeSKU} {
		if !HighValue(typ) {
			t.Errorf("%s should be high value", typ)
		}
	}
	for _, typ := range []Type{TypePrice, TypeDate, TypeTime, TypeNumber, TypeURL} {
		if HighValue(typ) {
			t.Errorf("%s should not be high value", typ)
		}
	}
}

func TestTypesIn(t *testing.T) {
	spans := Detect("Email sales@example.com or call 555-123-4567.")
	types := TypesIn(spans, 0, 50)
	if len(types) != 2 || types[0] != "email" || types[1] != "phone" {
		t.Errorf("TypesIn = %v", types)
	}
	if got := TypesIn(spans, 0, 3); got != nil {
		t.Errorf("expected no types in prefix, got %v", got)
	}
}
