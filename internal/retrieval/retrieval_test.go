package retrieval

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"rag-chatbot-platform/internal/config"
	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/internal/query"
	"rag-chatbot-platform/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func makeHits(ids ...string) []scoredChunk {
	hits := make([]scoredChunk, len(ids))
	for i, id := range ids {
		hits[i] = scoredChunk{DocumentChunk: models.DocumentChunk{ChunkID: id, Content: "content " + id}}
	}
	return hits
}

func TestFuseBothLegsOutranksSingleLeg(t *testing.T) {
	vector := makeHits("a", "b", "c")
	keyword := makeHits("b", "d")

	fused := fuse(vector, keyword, 0.5, 0.5, 10)
	if len(fused) != 4 {
		t.Fatalf("fused %d chunks, want 4", len(fused))
	}
	// b appears in both legs, so it must outrank everything else.
	if fused[0].ChunkID != "b" {
		t.Errorf("top chunk = %s, want b", fused[0].ChunkID)
	}
}

func TestFuseRespectsWeights(t *testing.T) {
	vector := makeHits("v")
	keyword := makeHits("k")

	// Keyword-heavy weighting, as used for entity lookups.
	fused := fuse(vector, keyword, 0.3, 0.7, 10)
	if fused[0].ChunkID != "k" {
		t.Errorf("top chunk = %s, want keyword leg winner", fused[0].ChunkID)
	}

	// Vector-heavy weighting flips the order.
	fused = fuse(vector, keyword, 0.8, 0.2, 10)
	if fused[0].ChunkID != "v" {
		t.Errorf("top chunk = %s, want vector leg winner", fused[0].ChunkID)
	}
}

func TestFuseRankMonotonicity(t *testing.T) {
	vector := makeHits("a", "b", "c", "d")
	fused := fuse(vector, nil, 1.0, 0.0, 10)

	for i := 1; i < len(fused); i++ {
		if fused[i].Score > fused[i-1].Score {
			t.Fatalf("scores not monotonic at %d: %f > %f", i, fused[i].Score, fused[i-1].Score)
		}
	}
	if fused[0].ChunkID != "a" {
		t.Errorf("leg order not preserved: %s", fused[0].ChunkID)
	}
}

func TestFuseTruncatesToTopK(t *testing.T) {
	fused := fuse(makeHits("a", "b", "c", "d", "e"), nil, 1.0, 0.0, 2)
	if len(fused) != 2 {
		t.Errorf("fused %d chunks, want 2", len(fused))
	}
}

func TestFuseEmptyLegs(t *testing.T) {
	if fused := fuse(nil, nil, 0.5, 0.5, 5); len(fused) != 0 {
		t.Errorf("expected no chunks, got %d", len(fused))
	}
}

func TestResolveWeightsPinnedByCaller(t *testing.T) {
	v, k := resolveWeights(Options{VectorWeight: 0.9, KeywordWeight: 0.1}, query.IntentEntity)
	if v != 0.9 || k != 0.1 {
		t.Errorf("pinned weights not honored: %f/%f", v, k)
	}

	// A single pinned weight still overrides the presets.
	v, k = resolveWeights(Options{KeywordWeight: 1.0}, query.IntentConceptual)
	if v != 0 || k != 1.0 {
		t.Errorf("partial pin not honored: %f/%f", v, k)
	}
}

func TestResolveWeightsIntentPresets(t *testing.T) {
	for intent, want := range legWeights {
		v, k := resolveWeights(Options{}, intent)
		if v != want.vector || k != want.keyword {
			t.Errorf("%s: got %f/%f, want %f/%f", intent, v, k, want.vector, want.keyword)
		}
	}
}

func TestKeywordSearchDisabledWarns(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Logger
	logger.Logger = slog.New(slog.NewJSONHandler(&buf, nil))
	defer func() { logger.Logger = prev }()

	r := &Retriever{cfg: &config.Config{TextSearchEnabled: false}}
	hits, err := r.keywordSearch(context.Background(), &query.Processed{Keywords: []string{"parking"}}, nil, 10)
	if err != nil || hits != nil {
		t.Fatalf("disabled leg should return nothing: %v, %v", hits, err)
	}
	if !strings.Contains(buf.String(), "keyword search disabled") {
		t.Errorf("expected a warning, log output: %q", buf.String())
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors = %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors = %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("mismatched dims = %f", got)
	}
}

func TestFormatContextEmpty(t *testing.T) {
	if got := FormatContext(&models.RagContext{}); got != "" {
		t.Errorf("empty context formatted to %q", got)
	}
	if got := FormatContext(nil); got != "" {
		t.Errorf("nil context formatted to %q", got)
	}
}

func TestFormatContextLabelsAndPages(t *testing.T) {
	rag := &models.RagContext{
		Chunks: []models.RetrievedChunk{
			{ChunkID: "c1", SourceName: "Lease Handbook", Content: "Rent is due on the first.", Metadata: models.ChunkMetadata{Page: 3}},
			{ChunkID: "c2", SourceName: "FAQ", Content: "Pets are allowed."},
		},
	}

	out := FormatContext(rag)
	if !strings.Contains(out, "[Reference 1 — Lease Handbook, page 3]") {
		t.Errorf("missing labeled reference:\n%s", out)
	}
	if !strings.Contains(out, "[Reference 2 — FAQ]") {
		t.Errorf("missing second reference:\n%s", out)
	}
	if !strings.Contains(out, "ONLY the reference material") {
		t.Errorf("grounding instructions missing:\n%s", out)
	}
	if strings.Contains(out, "Markdown links") {
		t.Errorf("link instructions present without links:\n%s", out)
	}
}

func TestFormatContextLinkGating(t *testing.T) {
	rag := &models.RagContext{
		Chunks: []models.RetrievedChunk{
			{ChunkID: "c1", Content: "See the [floor plan](https://example.com/2br) for details."},
		},
	}
	if out := FormatContext(rag); !strings.Contains(out, "Markdown links") {
		t.Errorf("link instructions missing when links present:\n%s", out)
	}
}

func TestAugmentSystemPrompt(t *testing.T) {
	rag := &models.RagContext{
		Chunks: []models.RetrievedChunk{{ChunkID: "c1", Content: "Office opens at nine."}},
	}

	out := AugmentSystemPrompt("You are a helpful leasing assistant.", rag)
	if !strings.HasPrefix(out, "You are a helpful leasing assistant.") {
		t.Errorf("base prompt lost:\n%s", out)
	}
	if !strings.Contains(out, "Office opens at nine.") {
		t.Errorf("context not appended:\n%s", out)
	}

	if got := AugmentSystemPrompt("Base prompt.", &models.RagContext{}); got != "Base prompt." {
		t.Errorf("empty context altered prompt: %q", got)
	}
}

func TestExtractRagMetadata(t *testing.T) {
	sourceID := primitive.NewObjectID()
	rag := &models.RagContext{
		Chunks: []models.RetrievedChunk{
			{ChunkID: "c1", SourceID: sourceID, SourceName: "Handbook", Score: 0.42, Metadata: models.ChunkMetadata{Page: 7}},
		},
	}

	citations := ExtractRagMetadata(rag)
	if len(citations) != 1 {
		t.Fatalf("got %d citations", len(citations))
	}
	c := citations[0]
	if c.SourceID != sourceID || c.ChunkID != "c1" || c.PageNumber != 7 || c.Score != 0.42 {
		t.Errorf("citation = %+v", c)
	}
}
