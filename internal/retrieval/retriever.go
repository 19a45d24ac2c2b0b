package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"rag-chatbot-platform/internal/ai"
	"rag-chatbot-platform/internal/config"
	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/internal/query"
	"rag-chatbot-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mode selects which search legs run.
type Mode string

const (
	ModeHybrid  Mode = "hybrid"
	ModeVector  Mode = "vector"
	ModeKeyword Mode = "keyword"
)

// rrfK is the reciprocal rank fusion constant. Rank contributions decay
// as 1/(k+rank), so with k=60 the gap between rank 1 and rank 10
// stays meaningful without letting a single leg dominate.
const rrfK = 60

// Options tunes one retrieval call. When either weight is set the pair
// is used as-is; otherwise the intent presets apply.
type Options struct {
	TopK          int
	Mode          Mode
	VectorWeight  float64
	KeywordWeight float64
}

// legWeights balances the two search legs per query intent. Entity
// lookups lean on exact keyword matches, conceptual questions lean on
// semantic similarity.
var legWeights = map[query.Intent]struct{ vector, keyword float64 }{
	query.IntentEntity:     {0.3, 0.7},
	query.IntentConceptual: {0.8, 0.2},
	query.IntentMixed:      {0.5, 0.5},
	query.IntentUnknown:    {0.6, 0.4},
}

type scoredChunk struct {
	models.DocumentChunk `bson:",inline"`
	Score                float64 `bson:"score"`
}

// Retriever runs hybrid search over the chunk store: a vector leg and a
// keyword leg in parallel, fused with weighted reciprocal rank fusion.
type Retriever struct {
	db       *mongo.Database
	embedder *ai.Embedder
	cfg      *config.Config
}

func NewRetriever(db *mongo.Database, embedder *ai.Embedder, cfg *config.Config) *Retriever {
	return &Retriever{db: db, embedder: embedder, cfg: cfg}
}

// Retrieve answers a query with the fused top-K chunks from ready
// sources. One leg failing degrades to single-leg results; only both
// legs failing is an error.
func (r *Retriever) Retrieve(ctx context.Context, rawQuery string, opts Options) (*models.RagContext, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return &models.RagContext{}, nil
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = r.cfg.RetrievalTopK
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeHybrid
	}
	// Over-fetch per leg so fusion has real candidates to reorder.
	candidates := topK * 4

	processed := query.Process(rawQuery)

	readyIDs, err := r.readySourceIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ready sources: %w", err)
	}
	if len(readyIDs) == 0 {
		return &models.RagContext{}, nil
	}

	var (
		wg          sync.WaitGroup
		vectorHits  []scoredChunk
		keywordHits []scoredChunk
		vectorErr   error
		keywordErr  error
	)

	if mode == ModeHybrid || mode == ModeVector {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectorHits, vectorErr = r.vectorSearch(ctx, processed.EmbeddingQuery(), readyIDs, candidates)
		}()
	}
	if mode == ModeHybrid || mode == ModeKeyword {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keywordHits, keywordErr = r.keywordSearch(ctx, processed, readyIDs, candidates)
		}()
	}
	wg.Wait()

	if vectorErr != nil && mode != ModeKeyword {
		logger.Warn("vector search leg failed", "error", vectorErr, "intent", string(processed.Intent))
	}
	if keywordErr != nil && mode != ModeVector {
		logger.Warn("keyword search leg failed", "error", keywordErr, "intent", string(processed.Intent))
	}
	if len(vectorHits) == 0 && len(keywordHits) == 0 {
		if vectorErr != nil && keywordErr != nil {
			return nil, fmt.Errorf("both search legs failed: %v; %v", vectorErr, keywordErr)
		}
		if mode == ModeVector && vectorErr != nil {
			return nil, vectorErr
		}
		if mode == ModeKeyword && keywordErr != nil {
			return nil, keywordErr
		}
		return &models.RagContext{}, nil
	}

	vectorWeight, keywordWeight := resolveWeights(opts, processed.Intent)
	fused := fuse(vectorHits, keywordHits, vectorWeight, keywordWeight, topK)

	result, err := r.hydrate(ctx, fused)
	if err != nil {
		return nil, err
	}

	logger.Debug("retrieval complete",
		"intent", string(processed.Intent),
		"mode", string(mode),
		"vector_hits", len(vectorHits),
		"keyword_hits", len(keywordHits),
		"fused", len(result.Chunks),
		"tokens_estimate", result.TotalTokensEstimate,
	)
	return result, nil
}

// resolveWeights picks the leg weights for fusion: explicit caller
// weights win, the intent presets cover everything else.
func resolveWeights(opts Options, intent query.Intent) (vector, keyword float64) {
	if opts.VectorWeight > 0 || opts.KeywordWeight > 0 {
		return opts.VectorWeight, opts.KeywordWeight
	}
	w := legWeights[intent]
	return w.vector, w.keyword
}

// fuse merges the two ranked lists with weighted reciprocal rank
// fusion. A chunk absent from a leg contributes nothing for that leg.
func fuse(vectorHits, keywordHits []scoredChunk, vectorWeight, keywordWeight float64, topK int) []scoredChunk {
	type fusedHit struct {
		chunk scoredChunk
		score float64
	}
	byID := make(map[string]*fusedHit)

	accumulate := func(hits []scoredChunk, weight float64) {
		for rank, hit := range hits {
			contribution := weight * (1.0 / float64(rrfK+rank+1))
			if f, ok := byID[hit.ChunkID]; ok {
				f.score += contribution
			} else {
				byID[hit.ChunkID] = &fusedHit{chunk: hit, score: contribution}
			}
		}
	}
	accumulate(vectorHits, vectorWeight)
	accumulate(keywordHits, keywordWeight)

	fused := make([]fusedHit, 0, len(byID))
	for _, f := range byID {
		if f.score > 0 {
			fused = append(fused, *f)
		}
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].chunk.ChunkID < fused[j].chunk.ChunkID
	})

	if len(fused) > topK {
		fused = fused[:topK]
	}
	out := make([]scoredChunk, len(fused))
	for i, f := range fused {
		out[i] = f.chunk
		out[i].Score = f.score
	}
	return out
}

// vectorSearch runs the semantic leg: Atlas $vectorSearch when enabled,
// otherwise an in-process cosine scan over stored embeddings.
func (r *Retriever) vectorSearch(ctx context.Context, embedText string, readyIDs []primitive.ObjectID, limit int) ([]scoredChunk, error) {
	vector, err := r.embedder.EmbedQuery(ctx, embedText)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	if r.cfg.VectorSearchEnabled {
		return r.atlasVectorSearch(ctx, vector, readyIDs, limit)
	}
	return r.cosineScan(ctx, vector, readyIDs, limit)
}

func (r *Retriever) atlasVectorSearch(ctx context.Context, vector []float32, readyIDs []primitive.ObjectID, limit int) ([]scoredChunk, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.M{
			"index":         r.cfg.VectorIndexName,
			"path":          "embedding",
			"queryVector":   vector,
			"numCandidates": limit * 10,
			"limit":         limit,
			"filter":        bson.M{"source_id": bson.M{"$in": readyIDs}},
		}}},
		{{Key: "$addFields", Value: bson.M{"score": bson.M{"$meta": "vectorSearchScore"}}}},
	}

	cursor, err := r.db.Collection("document_chunks").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var hits []scoredChunk
	if err := cursor.All(ctx, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// cosineScan ranks chunks by cosine similarity in process. It reads
// every embedded chunk from ready sources, which is fine at the corpus
// sizes a single deployment indexes.
func (r *Retriever) cosineScan(ctx context.Context, vector []float32, readyIDs []primitive.ObjectID, limit int) ([]scoredChunk, error) {
	filter := bson.M{
		"source_id": bson.M{"$in": readyIDs},
		"embedding": bson.M{"$exists": true, "$ne": nil},
	}
	cursor, err := r.db.Collection("document_chunks").Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var hits []scoredChunk
	for cursor.Next(ctx) {
		var chunk models.DocumentChunk
		if err := cursor.Decode(&chunk); err != nil {
			continue
		}
		score := cosineSimilarity(vector, chunk.Embedding)
		if score <= 0 {
			continue
		}
		hits = append(hits, scoredChunk{DocumentChunk: chunk, Score: score})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// keywordSearch runs the exact-match leg over the weighted text index,
// searching the query keywords plus expansion terms.
func (r *Retriever) keywordSearch(ctx context.Context, processed *query.Processed, readyIDs []primitive.ObjectID, limit int) ([]scoredChunk, error) {
	if !r.cfg.TextSearchEnabled {
		logger.Warn("keyword search disabled, leg skipped")
		return nil, nil
	}
	terms := append(append([]string{}, processed.Keywords...), processed.Expanded...)
	if len(terms) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"$text":     bson.M{"$search": strings.Join(terms, " ")},
		"source_id": bson.M{"$in": readyIDs},
	}
	findOpts := options.Find().
		SetProjection(bson.M{
			"score":      bson.M{"$meta": "textScore"},
			"source_id":  1,
			"chunk_id":   1,
			"content":    1,
			"keywords":   1,
			"metadata":   1,
			"created_at": 1,
		}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetLimit(int64(limit))

	cursor, err := r.db.Collection("document_chunks").Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var hits []scoredChunk
	if err := cursor.All(ctx, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (r *Retriever) readySourceIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cursor, err := r.db.Collection("knowledge_sources").Find(ctx,
		bson.M{"status": models.SourceStatusReady},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// hydrate joins source names onto the fused hits and estimates token
// footprint at four characters per token.
func (r *Retriever) hydrate(ctx context.Context, hits []scoredChunk) (*models.RagContext, error) {
	idSet := make(map[primitive.ObjectID]bool)
	for _, h := range hits {
		idSet[h.SourceID] = true
	}
	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	names := make(map[primitive.ObjectID]string)
	if len(ids) > 0 {
		cursor, err := r.db.Collection("knowledge_sources").Find(ctx,
			bson.M{"_id": bson.M{"$in": ids}},
			options.Find().SetProjection(bson.M{"name": 1}))
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)

		var sources []struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if err := cursor.All(ctx, &sources); err != nil {
			return nil, err
		}
		for _, s := range sources {
			names[s.ID] = s.Name
		}
	}

	result := &models.RagContext{}
	for _, h := range hits {
		result.Chunks = append(result.Chunks, models.RetrievedChunk{
			ChunkID:    h.ChunkID,
			SourceID:   h.SourceID,
			SourceName: names[h.SourceID],
			Content:    h.Content,
			Score:      h.Score,
			Metadata:   h.Metadata,
		})
		result.TotalTokensEstimate += len(h.Content) / 4
	}
	return result, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
