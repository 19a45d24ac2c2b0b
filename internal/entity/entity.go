package entity

import (
	"regexp"
	"sort"
)

// Type names one recognizer in the detection table.
type Type string

const (
	TypeURL     Type = "url"
	TypeEmail   Type = "email"
	TypePhone   Type = "phone"
	TypeAddress Type = "address"
	TypeSKU     Type = "sku"
	TypePrice   Type = "price"
	TypeDate    Type = "date"
	TypeTime    Type = "time"
	TypeNumber  Type = "number"
)

// Span is one detected entity occurrence. End is exclusive.
type Span struct {
	Type  Type
	Value string
	Start int
	End   int
}

// recognizer is one row of the detection table. Rows are evaluated in
// slice order, which doubles as priority order: a match claims its
// character range, and lower-priority matches overlapping a claimed
// range are discarded.
type recognizer struct {
	typ Type
	re  *regexp.Regexp
}

const (
	datePat = `(?:(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?|\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2})`
	timePat = `(?:\d{1,2}:\d{2}\s?(?:[aApP][mM])?|\d{1,2}\s?[aApP][mM])`
)

var recognizers = []recognizer{
	{TypeURL, regexp.MustCompile(`https?://[^\s<>"')\]]+|www\.[^\s<>"')\]]+`)},
	{TypeEmail, regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{TypePhone, regexp.MustCompile(`(?:\+\d{1,2}[\s.-]?)?(?:\(\d{3}\)[\s.-]?|\b\d{3}[\s.-])\d{3}[\s.-]?\d{4}\b`)},
	{TypeAddress, regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Za-z][A-Za-z'.-]*\s+){0,4}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl|Square|Sq|Way|Terrace|Ter|Circle|Cir|Highway|Hwy)\b\.?(?:,?\s+(?:Apt|Suite|Ste|Unit)\.?\s*#?\w+)?`)},
	{TypeSKU, regexp.MustCompile(`\b[A-Z]{2,}[-_]\d{3,}\b|\b[A-Z]{3,}\d{3,}\b`)},
	{TypePrice, regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d{1,2})?(?:\s?(?:per|/)\s?(?:month|mo|week|wk|night|day|year|yr))?`)},
	{TypeDate, regexp.MustCompile(datePat + `(?:\s*(?:-|–|to|through)\s*` + datePat + `)?`)},
	{TypeTime, regexp.MustCompile(timePat + `(?:\s*(?:-|–|to)\s*` + timePat + `)?`)},
	{TypeNumber, regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)},
}

// Detect scans text with every recognizer in priority order and returns
// the non-overlapping spans, sorted by start offset.
func Detect(text string) []Span {
	var spans []Span
	var claimed [][2]int

	for _, rec := range recognizers {
		for _, loc := range rec.re.FindAllStringIndex(text, -1) {
			if overlapsAny(claimed, loc[0], loc[1]) {
				continue
			}
			claimed = append(claimed, [2]int{loc[0], loc[1]})
			spans = append(spans, Span{
				Type:  rec.typ,
				Value: text[loc[0]:loc[1]],
				Start: loc[0],
				End:   loc[1],
			})
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

func overlapsAny(claimed [][2]int, start, end int) bool {
	for _, c := range claimed {
		if start < c[1] && end > c[0] {
			return true
		}
	}
	return false
}

// HighValue reports whether a type is a strong lookup signal.
// Price/date/time/number occur too often in prose to count.
func HighValue(t Type) bool {
	switch t {
	case TypeAddress, TypePhone, TypeEmail, TypeSKU:
		return true
	}
	return false
}

// SafeSplit reports whether pos is a split point at least padding
// characters away from every span.
func SafeSplit(spans []Span, pos, padding int) bool {
	for _, s := range spans {
		if pos > s.Start-padding && pos < s.End+padding {
			return false
		}
	}
	return true
}

// TypesIn returns the distinct entity type names whose spans intersect
// the [start, end) range, in first-occurrence order.
func TypesIn(spans []Span, start, end int) []string {
	var types []string
	seen := make(map[Type]bool)
	for _, s := range spans {
		if s.Start < end && s.End > start && !seen[s.Type] {
			seen[s.Type] = true
			types = append(types, string(s.Type))
		}
	}
	return types
}
