package query

import (
	"strings"
	"testing"
)

func TestClassifyEntityLookup(t *testing.T) {
	p := Process("What is 15 Henry St?")
	if p.Intent != IntentEntity {
		t.Fatalf("intent = %s, want entity", p.Intent)
	}
	if len(p.Entities) == 0 || p.Entities[0].Value != "15 Henry St" {
		t.Errorf("entities = %+v", p.Entities)
	}
}

func TestClassifyConceptual(t *testing.T) {
	if p := Process("How does your service work?"); p.Intent != IntentConceptual {
		t.Errorf("intent = %s, want conceptual", p.Intent)
	}
}

func TestClassifyMixed(t *testing.T) {
	if p := Process("Where is 15 Henry St located and why is it priced this way?"); p.Intent != IntentMixed {
		t.Errorf("intent = %s, want mixed", p.Intent)
	}
}

func TestClassifyUnknown(t *testing.T) {
	if p := Process("apartment details"); p.Intent != IntentUnknown {
		t.Errorf("intent = %s, want unknown", p.Intent)
	}
}

func TestBareNumberIsNotEntityLookup(t *testing.T) {
	// A number alone carries no lookup signal, only high-value types
	// force entity intent.
	if p := Process("unit 204 details"); p.Intent == IntentEntity {
		t.Errorf("bare number classified as entity lookup")
	}
}

func TestNormalize(t *testing.T) {
	p := Process("  What   ARE your   Hours?? ")
	if p.Normalized != "what are your hours" {
		t.Errorf("normalized = %q", p.Normalized)
	}
}

func TestExpansionFromEntityTypes(t *testing.T) {
	p := Process("What is 15 Henry St?")
	joined := strings.ToLower(strings.Join(p.Expanded, " "))
	if !strings.Contains(joined, "location") || !strings.Contains(joined, "property") {
		t.Errorf("expanded = %v", p.Expanded)
	}
}

func TestExpansionFromIntentPatterns(t *testing.T) {
	p := Process("How much does a two bedroom rent for?")
	joined := strings.ToLower(strings.Join(p.Expanded, " "))
	if !strings.Contains(joined, "price") || !strings.Contains(joined, "cost") {
		t.Errorf("expanded = %v", p.Expanded)
	}
}

func TestExpansionSkipsTermsAlreadyInQuery(t *testing.T) {
	p := Process("What is the price of 15 Henry St?")
	for _, term := range p.Expanded {
		if strings.EqualFold(term, "price") {
			t.Errorf("expansion repeated a query term: %v", p.Expanded)
		}
	}
}

func TestExpansionHasNoDuplicates(t *testing.T) {
	p := Process("Call 555-123-4567 or email info@example.com")
	seen := map[string]bool{}
	for _, term := range p.Expanded {
		key := strings.ToLower(term)
		if seen[key] {
			t.Fatalf("duplicate expansion term %q in %v", term, p.Expanded)
		}
		seen[key] = true
	}
}

func TestKeywordsEntityLiteralsFirst(t *testing.T) {
	p := Process("Is 15 Henry St still available?")
	if len(p.Keywords) == 0 || p.Keywords[0] != "15 Henry St" {
		t.Fatalf("keywords = %v", p.Keywords)
	}
	if !containsFold(p.Keywords, "available") || !containsFold(p.Keywords, "still") {
		t.Errorf("keywords missing content words: %v", p.Keywords)
	}
	if containsFold(p.Keywords, "is") {
		t.Errorf("stop word leaked: %v", p.Keywords)
	}
	if containsFold(p.Keywords, "henry") {
		t.Errorf("entity fragment leaked as plain keyword: %v", p.Keywords)
	}
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

func TestEmbeddingQueryIncludesExpansion(t *testing.T) {
	p := Process("Is the unit at 15 Henry Street open?")
	if len(p.Expanded) == 0 {
		t.Fatal("expected expansion terms")
	}

	embed := p.EmbeddingQuery()
	if !strings.HasPrefix(embed, p.Original) {
		t.Errorf("embedding query lost the original: %q", embed)
	}
	for _, term := range p.Expanded {
		if !strings.Contains(embed, term) {
			t.Errorf("embedding query missing expansion term %q: %q", term, embed)
		}
	}
}

func TestEmbeddingQueryWithoutExpansion(t *testing.T) {
	p := &Processed{Original: "hello"}
	if got := p.EmbeddingQuery(); got != "hello" {
		t.Errorf("embedding query = %q", got)
	}
}
