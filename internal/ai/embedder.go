package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rag-chatbot-platform/internal/config"
	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/utils"

	"github.com/google/generative-ai-go/genai"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// maxBatchSize is the embedding API's per-request content limit.
const maxBatchSize = 100

// Embedder produces embedding vectors through Google's embedding model,
// with a Redis cache in front keyed by content hash. Identical chunks
// across documents and repeated queries skip the API entirely.
type Embedder struct {
	client      *genai.Client
	model       string
	dimensions  int
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	rdb         *redis.Client
	cacheTTL    time.Duration
}

func NewEmbedder(cfg *config.Config, rdb *redis.Client) (*Embedder, error) {
	if cfg.EmbeddingsProvider != "" && cfg.EmbeddingsProvider != "google" {
		return nil, fmt.Errorf("unsupported embeddings provider: %s", cfg.EmbeddingsProvider)
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(cfg.GeminiTier)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Embedder{
		client:      client,
		model:       cfg.GoogleEmbeddingsModel,
		dimensions:  cfg.VectorDimensions,
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), maxInt(limits.RPM/10, 1)),
		rdb:         rdb,
		cacheTTL:    cfg.EmbeddingCacheTTL,
	}, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}

// Embed returns the embedding for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedQuery embeds a retrieval query. Queries use the same model as
// documents so both live in one vector space.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return e.Embed(ctx, query)
}

// EmbedBatch embeds texts in order, splitting into API-sized batches.
// Cached vectors are served from Redis and only the misses hit the API.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var missIdx []int
	for i, text := range texts {
		if v := e.cacheGet(ctx, text); v != nil {
			vectors[i] = v
			continue
		}
		missIdx = append(missIdx, i)
	}

	for start := 0; start < len(missIdx); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(missIdx) {
			end = len(missIdx)
		}
		batch := missIdx[start:end]

		embeddings, err := e.embedAPIBatch(ctx, texts, batch)
		if err != nil {
			return nil, err
		}
		for j, idx := range batch {
			vectors[idx] = embeddings[j]
			e.cacheSet(ctx, texts[idx], embeddings[j])
		}
	}
	return vectors, nil
}

func (e *Embedder) embedAPIBatch(ctx context.Context, texts []string, indices []int) ([][]float32, error) {
	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		model := e.client.EmbeddingModel(e.model)
		b := model.NewBatch()
		for _, idx := range indices {
			b.AddContent(genai.Text(texts[idx]))
		}
		return model.BatchEmbedContents(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	resp := result.(*genai.BatchEmbedContentsResponse)
	if len(resp.Embeddings) != len(indices) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d, want %d", len(resp.Embeddings), len(indices))
	}

	vectors := make([][]float32, len(indices))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("empty embedding at position %d", i)
		}
		if e.dimensions > 0 && len(emb.Values) != e.dimensions {
			return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(emb.Values), e.dimensions)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *Embedder) cacheKey(text string) string {
	return "embedding:" + e.model + ":" + utils.HashContent(text)
}

func (e *Embedder) cacheGet(ctx context.Context, text string) []float32 {
	if e.rdb == nil {
		return nil
	}
	data, err := e.rdb.Get(ctx, e.cacheKey(text)).Bytes()
	if err != nil {
		return nil
	}
	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil
	}
	return vector
}

func (e *Embedder) cacheSet(ctx context.Context, text string, vector []float32) {
	if e.rdb == nil {
		return
	}
	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := e.rdb.Set(ctx, e.cacheKey(text), data, e.cacheTTL).Err(); err != nil {
		logger.Debug("embedding cache write failed", "error", err)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
