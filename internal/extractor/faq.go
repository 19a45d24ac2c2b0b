package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractFAQ collects question/answer pairs from the markup patterns
// FAQ pages actually use: FAQPage JSON-LD, details/summary disclosure
// widgets, and definition lists. Pairs render as "Q:"/"A:" lines so the
// chunker recognizes them as atomic.
func extractFAQ(doc *goquery.Document) []string {
	var pairs []string
	seen := make(map[string]bool)

	add := func(q, a string) {
		q = collapseWhitespace(q)
		a = collapseWhitespace(a)
		if q == "" || a == "" || seen[q] {
			return
		}
		seen[q] = true
		pairs = append(pairs, "Q: "+q+"\nA: "+a)
	}

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		walkFAQJSON(data, add)
	})

	doc.Find("details").Each(func(_ int, s *goquery.Selection) {
		summary := s.Find("summary").First()
		question := summary.Text()
		answer := s.Clone()
		answer.Find("summary").Remove()
		add(question, answer.Text())
	})

	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		var question string
		dl.Children().Each(func(_ int, child *goquery.Selection) {
			switch goquery.NodeName(child) {
			case "dt":
				question = child.Text()
			case "dd":
				if question != "" {
					add(question, child.Text())
					question = ""
				}
			}
		})
	})

	return pairs
}

func walkFAQJSON(data interface{}, add func(q, a string)) {
	switch v := data.(type) {
	case []interface{}:
		for _, item := range v {
			walkFAQJSON(item, add)
		}
	case map[string]interface{}:
		if graph, ok := v["@graph"].([]interface{}); ok {
			walkFAQJSON(graph, add)
		}
		if jsonType(v) == "FAQPage" {
			if main, ok := v["mainEntity"].([]interface{}); ok {
				for _, item := range main {
					q, ok := item.(map[string]interface{})
					if !ok || jsonType(q) != "Question" {
						continue
					}
					name, _ := q["name"].(string)
					answer := acceptedAnswerText(q)
					add(name, answer)
				}
			}
		}
	}
}

func acceptedAnswerText(question map[string]interface{}) string {
	answer, ok := question["acceptedAnswer"].(map[string]interface{})
	if !ok {
		return ""
	}
	text, _ := answer["text"].(string)
	return stripTags(text)
}

// stripTags removes inline HTML that FAQPage answers frequently carry.
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
