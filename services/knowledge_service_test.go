package services

import (
	"strings"
	"testing"

	"rag-chatbot-platform/internal/config"
)

func testService() *KnowledgeService {
	return &KnowledgeService{cfg: &config.Config{
		MaxChunkSize:  1000,
		ChunkOverlap:  200,
		MinChunkSize:  50,
		EntityPadding: 50,
	}}
}

func TestChunkTextPicksQAStrategy(t *testing.T) {
	text := "Q: What are your hours?\nA: Nine to five on weekdays, closed on holidays and weekends.\n\nQ: Do you allow pets?\nA: Yes, cats and small dogs are welcome in every unit."
	chunks := testService().chunkText(text, false)
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	for _, c := range chunks {
		if !c.AtomicQA {
			t.Errorf("expected atomic QA chunks, got %+v", c)
		}
	}
}

func TestChunkTextPicksPageStrategy(t *testing.T) {
	page := strings.Repeat("Some page content that easily clears the minimum chunk size. ", 3)
	chunks := testService().chunkText(page+"\f"+page, false)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	if chunks[0].Page != 1 || chunks[len(chunks)-1].Page != 2 {
		t.Errorf("pages not assigned: first=%d last=%d", chunks[0].Page, chunks[len(chunks)-1].Page)
	}
}

func TestChunkTextPicksSectionStrategyForMarkdown(t *testing.T) {
	text := "# Pricing\n\nStudios start at nine hundred per month and one bedrooms start at twelve hundred.\n\n# Amenities\n\nThe building has a gym, rooftop deck, shared laundry, and covered bicycle parking."
	chunks := testService().chunkText(text, true)
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	if !strings.HasPrefix(chunks[0].Text, "# Pricing") {
		t.Errorf("section structure lost: %q", chunks[0].Text)
	}
}

func TestChunkTextDefaultsToParagraphs(t *testing.T) {
	text := strings.Repeat("Plain prose paragraph with enough words to clear the minimum size threshold. ", 4)
	chunks := testService().chunkText(text, false)
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	for _, c := range chunks {
		if c.AtomicQA || c.Page != 0 {
			t.Errorf("unexpected structure flags: %+v", c)
		}
	}
}

func TestChunkTextMergesSmallNeighbors(t *testing.T) {
	long := strings.Repeat("The quick brown fox jumps over the lazy dog near the riverbank. ", 20)
	text := long + "\n\nParking passes are issued at the front desk during office hours."

	chunks := testService().chunkText(text, false)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if prev.AtomicQA || cur.AtomicQA || prev.Page != cur.Page {
			continue
		}
		if combined := len(prev.Text) + 2 + len(cur.Text); combined <= 1000 {
			t.Errorf("chunks %d and %d left unmerged: combined %d chars fits the bound", i-1, i, combined)
		}
	}

	// The short trailing paragraph rides with the preceding prose.
	for _, c := range chunks {
		if strings.Contains(c.Text, "Parking passes") && !strings.Contains(c.Text, "riverbank") {
			t.Errorf("trailing paragraph left standalone: %q", c.Text)
		}
	}
}
