package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageEntity is one structured item lifted from JSON-LD, rendered as a
// self-contained Markdown block so a chunk holding it answers lookups
// on its own.
type pageEntity struct {
	kind        string
	name        string
	description string
	fields      []field
}

type field struct {
	label string
	value string
}

func (e *pageEntity) render() string {
	var sb strings.Builder
	if e.name != "" {
		sb.WriteString("### " + e.name + "\n")
	}
	for _, f := range e.fields {
		sb.WriteString("- " + f.label + ": " + f.value + "\n")
	}
	if e.description != "" {
		sb.WriteString("\n" + e.description)
	}
	return strings.TrimSpace(sb.String())
}

// fingerprints are the strings used to deduplicate generic page content
// against this entity.
func (e *pageEntity) fingerprints() []string {
	var fps []string
	if e.name != "" {
		fps = append(fps, collapseWhitespace(e.name))
	}
	if e.description != "" {
		fps = append(fps, collapseWhitespace(e.description))
	}
	for _, f := range e.fields {
		fps = append(fps, collapseWhitespace(f.value))
	}
	return fps
}

// extractJSONLD walks every ld+json script on the page and collects the
// entity types worth indexing. Unknown types and malformed scripts are
// skipped without complaint, structured data in the wild is messy.
func extractJSONLD(doc *goquery.Document) []pageEntity {
	var entities []pageEntity
	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		walkJSONLD(data, &entities)
	})
	return entities
}

func walkJSONLD(data interface{}, entities *[]pageEntity) {
	switch v := data.(type) {
	case []interface{}:
		for _, item := range v {
			walkJSONLD(item, entities)
		}
	case map[string]interface{}:
		if graph, ok := v["@graph"].([]interface{}); ok {
			walkJSONLD(graph, entities)
		}
		if items, ok := v["itemListElement"].([]interface{}); ok {
			for _, item := range items {
				if m, ok := item.(map[string]interface{}); ok {
					if inner, ok := m["item"]; ok {
						walkJSONLD(inner, entities)
					} else {
						walkJSONLD(m, entities)
					}
				}
			}
		}
		if e, ok := entityFromObject(v); ok {
			*entities = append(*entities, e)
		}
	}
}

func entityFromObject(obj map[string]interface{}) (pageEntity, bool) {
	kind := jsonType(obj)
	switch kind {
	case "Product", "Offer", "Apartment", "House", "Residence", "SingleFamilyResidence",
		"Place", "LocalBusiness", "RealEstateListing", "Accommodation", "Service", "Event":
	default:
		return pageEntity{}, false
	}

	e := pageEntity{kind: kind}
	e.name, _ = obj["name"].(string)
	e.description, _ = obj["description"].(string)

	if sku, ok := obj["sku"].(string); ok && sku != "" {
		e.fields = append(e.fields, field{"SKU", sku})
	}
	if price := priceFromObject(obj); price != "" {
		e.fields = append(e.fields, field{"Price", price})
	}
	if addr := addressFromObject(obj); addr != "" {
		e.fields = append(e.fields, field{"Address", addr})
	}
	if tel, ok := obj["telephone"].(string); ok && tel != "" {
		e.fields = append(e.fields, field{"Phone", tel})
	}
	if rooms := numericField(obj, "numberOfRooms", "numberOfBedrooms"); rooms != "" {
		e.fields = append(e.fields, field{"Bedrooms", rooms})
	}
	if baths := numericField(obj, "numberOfBathroomsTotal"); baths != "" {
		e.fields = append(e.fields, field{"Bathrooms", baths})
	}
	if avail, ok := obj["availability"].(string); ok && avail != "" {
		e.fields = append(e.fields, field{"Availability", strings.TrimPrefix(avail, "https://schema.org/")})
	}

	if e.name == "" && e.description == "" && len(e.fields) == 0 {
		return pageEntity{}, false
	}
	return e, true
}

func jsonType(obj map[string]interface{}) string {
	switch t := obj["@type"].(type) {
	case string:
		return t
	case []interface{}:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// priceFromObject reads price from the object itself or its nested
// offers, normalizing number and string forms.
func priceFromObject(obj map[string]interface{}) string {
	render := func(price interface{}, currency string) string {
		var p string
		switch v := price.(type) {
		case string:
			p = v
		case float64:
			if v == float64(int64(v)) {
				p = fmt.Sprintf("%d", int64(v))
			} else {
				p = fmt.Sprintf("%.2f", v)
			}
		default:
			return ""
		}
		if p == "" {
			return ""
		}
		if currency != "" && !strings.ContainsAny(p, "$€£") {
			return currency + " " + p
		}
		return p
	}

	currency, _ := obj["priceCurrency"].(string)
	if p := render(obj["price"], currency); p != "" {
		return p
	}

	switch offers := obj["offers"].(type) {
	case map[string]interface{}:
		c, _ := offers["priceCurrency"].(string)
		return render(offers["price"], c)
	case []interface{}:
		for _, o := range offers {
			if m, ok := o.(map[string]interface{}); ok {
				c, _ := m["priceCurrency"].(string)
				if p := render(m["price"], c); p != "" {
					return p
				}
			}
		}
	}
	return ""
}

func addressFromObject(obj map[string]interface{}) string {
	switch addr := obj["address"].(type) {
	case string:
		return addr
	case map[string]interface{}:
		var parts []string
		for _, key := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode"} {
			if v, ok := addr[key].(string); ok && v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func numericField(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case float64:
			if v == float64(int64(v)) {
				return fmt.Sprintf("%d", int64(v))
			}
			return fmt.Sprintf("%.1f", v)
		case string:
			if v != "" {
				return v
			}
		}
	}
	return ""
}
