package extractor

import (
	"strings"
	"testing"
)

func TestExtractJSONLDEntityFirst(t *testing.T) {
	html := `<html><head><title>Unit 204 | Example Apartments</title>
<script type="application/ld+json">
{"@type":"Apartment","name":"Unit 204","description":"A sunny two bedroom corner unit with a renovated kitchen.","numberOfRooms":2,
 "address":{"@type":"PostalAddress","streetAddress":"15 Henry St","addressLocality":"Springfield"},
 "offers":{"@type":"Offer","price":1250,"priceCurrency":"USD"}}
</script></head>
<body><main><h1>Welcome</h1><p>Browse our available units below and contact the office to book a tour today.</p></main></body></html>`

	ex, err := Extract(html, "https://example.com/units/204")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ex.EntityCount != 1 {
		t.Fatalf("entity count = %d", ex.EntityCount)
	}
	if ex.Title != "Unit 204 | Example Apartments" {
		t.Errorf("title = %q", ex.Title)
	}
	if !strings.HasPrefix(ex.Text, "### Unit 204") {
		t.Errorf("entity block not first:\n%s", ex.Text)
	}
	for _, want := range []string{"Price: USD 1250", "Address: 15 Henry St, Springfield", "Bedrooms: 2", "sunny two bedroom"} {
		if !strings.Contains(ex.Text, want) {
			t.Errorf("missing %q in:\n%s", want, ex.Text)
		}
	}
	if !strings.Contains(ex.Text, "Browse our available units") {
		t.Errorf("generic content dropped:\n%s", ex.Text)
	}
}

func TestExtractDedupesEntityText(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
{"@type":"Product","name":"Covered Parking Pass","description":"A reserved covered parking spot in the secure garage, billed monthly.","offers":{"price":"85","priceCurrency":"USD"}}
</script></head>
<body><main>
<p>A reserved covered parking spot in the secure garage, billed monthly.</p>
<p>Passes are issued at the leasing office during business hours each weekday.</p>
</main></body></html>`

	ex, err := Extract(html, "https://example.com/parking")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if n := strings.Count(ex.Text, "reserved covered parking spot"); n != 1 {
		t.Errorf("entity text appears %d times:\n%s", n, ex.Text)
	}
	if !strings.Contains(ex.Text, "issued at the leasing office") {
		t.Errorf("non-duplicate paragraph dropped:\n%s", ex.Text)
	}
}

func TestExtractFAQPairs(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
{"@type":"FAQPage","mainEntity":[
 {"@type":"Question","name":"Do you allow pets?","acceptedAnswer":{"@type":"Answer","text":"<p>Yes, cats and small dogs are welcome.</p>"}}]}
</script></head>
<body><main>
<details><summary>What are the office hours?</summary><p>We are open nine to five on weekdays.</p></details>
<dl><dt>Is parking included?</dt><dd>Street parking is free, garage spots are extra.</dd></dl>
<p>Reach out any time with questions not covered here, we are happy to help.</p>
</main></body></html>`

	ex, err := Extract(html, "https://example.com/faq")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, want := range []string{
		"Q: Do you allow pets?\nA: Yes, cats and small dogs are welcome.",
		"Q: What are the office hours?\nA: We are open nine to five on weekdays.",
		"Q: Is parking included?\nA: Street parking is free, garage spots are extra.",
	} {
		if !strings.Contains(ex.Text, want) {
			t.Errorf("missing pair %q in:\n%s", want, ex.Text)
		}
	}
}

func TestExtractAbsoluteLinksAndHeadings(t *testing.T) {
	html := `<html><body><main>
<h2>Floor Plans</h2>
<p>See the <a href="/floorplans/2br">two bedroom layout</a> for details about the corner units.</p>
<ul><li>In-unit laundry</li><li>Central air</li></ul>
</main></body></html>`

	ex, err := Extract(html, "https://example.com/amenities")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(ex.Text, "## Floor Plans") {
		t.Errorf("heading not converted:\n%s", ex.Text)
	}
	if !strings.Contains(ex.Text, "[two bedroom layout](https://example.com/floorplans/2br)") {
		t.Errorf("link not absolutized:\n%s", ex.Text)
	}
	if !strings.Contains(ex.Text, "- In-unit laundry") {
		t.Errorf("list not converted:\n%s", ex.Text)
	}
}

func TestExtractSPAShellWarning(t *testing.T) {
	html := `<html><head>
<script src="/app.1.js"></script><script src="/app.2.js"></script><script src="/app.3.js"></script>
<script src="/app.4.js"></script><script src="/app.5.js"></script><script src="/app.6.js"></script>
</head><body><div id="root"></div></body></html>`

	ex, err := Extract(html, "https://example.com/")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(ex.Warnings) == 0 || !strings.Contains(ex.Warnings[0], "client-rendered shell") {
		t.Errorf("warnings = %v", ex.Warnings)
	}
}

func TestExtractGhostListingWarning(t *testing.T) {
	html := `<html><body><main>
<div class="listing"><p>This building offers a wide range of studio, one bedroom, and two bedroom apartments for rent.</p></div>
</main></body></html>`

	ex, err := Extract(html, "https://example.com/listings")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	found := false
	for _, w := range ex.Warnings {
		if strings.Contains(w, "no structured entity data") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v", ex.Warnings)
	}
}
