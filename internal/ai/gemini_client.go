package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rag-chatbot-platform/internal/logger"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// GeminiClient wraps chat generation with a circuit breaker and a
// client-side rate limiter sized to the account tier.
type GeminiClient struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

// RateLimits mirrors the published per-tier quotas.
type RateLimits struct {
	RPM int
	TPM int
	RPD int
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

func NewGeminiClient(apiKey, model, tier string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(tier)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiChat",
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

	return &GeminiClient{
		client:      client,
		model:       model,
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), maxInt(limits.RPM/10, 1)),
	}, nil
}

func (gc *GeminiClient) Close() error {
	return gc.client.Close()
}

// GenerateReply runs one chat turn under the given system prompt and
// returns the reply text with a token usage estimate.
func (gc *GeminiClient) GenerateReply(ctx context.Context, systemPrompt, userMessage string) (string, int, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_reply")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", gc.model),
		attribute.Int("gemini.prompt_chars", len(systemPrompt)+len(userMessage)),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", 0, err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(0.7)
		model.SetMaxOutputTokens(2048)
		if systemPrompt != "" {
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(systemPrompt)},
			}
		}
		return model.GenerateContent(ctx, genai.Text(userMessage))
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", 0, fmt.Errorf("generation failed: %w", err)
	}

	resp := result.(*genai.GenerateContentResponse)
	reply := responseText(resp)
	if reply == "" {
		return "", 0, fmt.Errorf("model returned no content")
	}

	tokens := (len(systemPrompt) + len(userMessage) + len(reply)) / 4
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	span.SetAttributes(attribute.Int("gemini.tokens", tokens))
	return reply, tokens, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
