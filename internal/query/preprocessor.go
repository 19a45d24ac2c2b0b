package query

import (
	"regexp"
	"strings"

	"rag-chatbot-platform/internal/entity"
)

// Intent drives how retrieval weighs its vector and keyword legs.
type Intent string

const (
	// IntentEntity is a lookup of a specific thing: an address, a
	// phone number, a unit, a SKU.
	IntentEntity Intent = "entity"
	// IntentConceptual is an open question answered by prose.
	IntentConceptual Intent = "conceptual"
	// IntentMixed asks a conceptual question about a specific entity.
	IntentMixed Intent = "mixed"
	IntentUnknown Intent = "unknown"
)

// Processed is the retrieval-ready form of a user query.
type Processed struct {
	Original   string
	Normalized string
	Intent     Intent
	Entities   []entity.Span
	// Expanded holds search terms added from entity types and intent
	// patterns. They feed both retrieval legs: appended to the keyword
	// search and to the embedding input.
	Expanded []string
	Keywords []string
}

// EmbeddingQuery returns the text to embed for the vector leg: the
// original query followed by the expansion terms, so semantically
// related content surfaces even when the user's phrasing never
// names it.
func (p *Processed) EmbeddingQuery() string {
	if len(p.Expanded) == 0 {
		return p.Original
	}
	return p.Original + " " + strings.Join(p.Expanded, " ")
}

var (
	questionRe = regexp.MustCompile(`(?i)^(?:how|why|what|when|where|who|which|can|could|do|does|is|are|will|should|tell me|explain)\b`)
	wordRe     = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9'-]*`)

	trailingPunctRe = regexp.MustCompile(`[?!.\s]+$`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// expansionTerms maps entity types to search terms that co-occur with
// them in indexed content. At most two per type keeps expansion from
// drowning the user's own words.
var expansionTerms = map[entity.Type][]string{
	entity.TypeAddress: {"location", "property"},
	entity.TypePhone:   {"contact", "phone"},
	entity.TypeEmail:   {"contact", "email"},
	entity.TypeSKU:     {"unit", "model"},
	entity.TypePrice:   {"price", "cost"},
	entity.TypeDate:    {"availability", "schedule"},
	entity.TypeTime:    {"hours", "schedule"},
}

// intentPatterns add domain terms when the query signals a common ask.
var intentPatterns = []struct {
	re    *regexp.Regexp
	terms []string
}{
	{regexp.MustCompile(`(?i)\b(?:available|availability|vacan\w+|open(?:ings?)?|free)\b`), []string{"available", "availability"}},
	{regexp.MustCompile(`(?i)\b(?:price|pricing|cost|costs|rent|fee|fees|how much)\b`), []string{"price", "cost"}},
	{regexp.MustCompile(`(?i)\b(?:tour|visit|viewing|appointment|schedule|book)\b`), []string{"schedule", "tour"}},
	{regexp.MustCompile(`(?i)\b(?:amenit\w+|features?|includes?|included)\b`), []string{"amenities", "features"}},
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "is": true, "was": true, "are": true,
	"be": true, "been": true, "do": true, "does": true, "did": true, "have": true,
	"has": true, "had": true, "will": true, "would": true, "can": true,
	"could": true, "should": true, "this": true, "that": true, "it": true,
	"its": true, "my": true, "your": true, "our": true, "their": true,
	"what": true, "which": true, "who": true, "how": true, "why": true,
	"when": true, "where": true, "you": true, "me": true, "tell": true,
	"about": true, "any": true, "there": true, "here": true, "please": true,
}

// Process analyzes a raw user query: detects entities, classifies
// intent, expands search terms, and extracts keywords for the keyword
// retrieval leg.
func Process(raw string) *Processed {
	p := &Processed{Original: raw}

	p.Normalized = normalize(raw)
	p.Entities = entity.Detect(raw)
	p.Intent = classify(raw, p.Entities)
	p.Expanded = expand(raw, p.Entities)
	p.Keywords = extractKeywords(raw, p.Entities)
	return p
}

func normalize(raw string) string {
	s := whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	s = trailingPunctRe.ReplaceAllString(s, "")
	return strings.ToLower(s)
}

// classify picks the retrieval intent. A short query carrying a
// high-value entity is a lookup no matter how it is phrased: "What is
// 15 Henry St?" wants the record for that address, not an essay.
func classify(raw string, spans []entity.Span) Intent {
	hasHighValue := false
	for _, s := range spans {
		if entity.HighValue(s.Type) {
			hasHighValue = true
			break
		}
	}
	isQuestion := questionRe.MatchString(strings.TrimSpace(raw)) || strings.HasSuffix(strings.TrimSpace(raw), "?")
	wordCount := len(wordRe.FindAllString(raw, -1)) + len(spans)

	switch {
	case hasHighValue && wordCount <= 5:
		return IntentEntity
	case hasHighValue && isQuestion:
		return IntentMixed
	case isQuestion:
		return IntentConceptual
	case hasHighValue:
		return IntentEntity
	default:
		return IntentUnknown
	}
}

// expand builds extra search terms, skipping anything already present
// in the query. Dedup is case-insensitive.
func expand(raw string, spans []entity.Span) []string {
	lower := strings.ToLower(raw)
	seen := make(map[string]bool)
	var terms []string

	add := func(term string) {
		key := strings.ToLower(term)
		if seen[key] || strings.Contains(lower, key) {
			return
		}
		seen[key] = true
		terms = append(terms, term)
	}

	seenTypes := make(map[entity.Type]bool)
	for _, s := range spans {
		if seenTypes[s.Type] {
			continue
		}
		seenTypes[s.Type] = true
		for _, term := range expansionTerms[s.Type] {
			add(term)
		}
	}

	for _, pattern := range intentPatterns {
		if pattern.re.MatchString(raw) {
			for _, term := range pattern.terms {
				add(term)
			}
		}
	}
	return terms
}

// extractKeywords returns entity literals first, then the remaining
// meaningful words in query order, deduplicated.
func extractKeywords(raw string, spans []entity.Span) []string {
	seen := make(map[string]bool)
	var keywords []string

	add := func(kw string) {
		key := strings.ToLower(kw)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		keywords = append(keywords, kw)
	}

	for _, s := range spans {
		add(s.Value)
	}

	// Blank out entity ranges so their fragments don't reappear as
	// plain words.
	masked := []byte(raw)
	for _, s := range spans {
		for i := s.Start; i < s.End && i < len(masked); i++ {
			masked[i] = ' '
		}
	}
	for _, w := range wordRe.FindAllString(string(masked), -1) {
		if len(w) <= 2 || stopWords[strings.ToLower(w)] {
			continue
		}
		add(strings.ToLower(w))
	}
	return keywords
}
