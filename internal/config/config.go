package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Upload limits
	MaxFileSize         int64
	AllowedTypes        []string
	SyncProcessingLimit int64 // uploads above this go through the worker queue

	// Chunking defaults
	MaxChunkSize  int
	ChunkOverlap  int
	MinChunkSize  int
	EntityPadding int

	// Retrieval
	RetrievalTopK       int
	VectorSearchEnabled bool // Atlas $vectorSearch; in-process cosine fallback otherwise
	TextSearchEnabled   bool // Mongo $text keyword leg
	VectorIndexName     string
	VectorDimensions    int

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Embeddings / generation
	GeminiAPIKey          string
	GeminiModel           string
	EmbeddingsProvider    string // "google" (default)
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	GeminiTier            string
	EmbeddingCacheTTL     time.Duration

	// Page fetch tiers
	RenderProviderURL   string // primary JS-rendering API, enabled by key presence
	RenderProviderKey   string
	FallbackProviderURL string // secondary JS-rendering API
	FallbackProviderKey string
	LocalRenderEnabled  bool // headless Chrome tier
	FetchTimeout        time.Duration
	RenderTimeout       time.Duration
	CrawlMaxPages       int

	// Scheduled refresh of URL sources
	RefreshCron   string
	RefreshMaxAge time.Duration

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Tracing
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/rag_chatbot"),
		DBName:      getEnv("DB_NAME", "rag_chatbot"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		AllowedTypes:        strings.Split(getEnv("ALLOWED_FILE_TYPES", "pdf,txt,md,docx,xlsx"), ","),
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 20971520), // 20MB

		MaxChunkSize:  getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap:  getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkSize:  getEnvInt("MIN_CHUNK_SIZE", 50),
		EntityPadding: getEnvInt("ENTITY_PADDING", 50),

		RetrievalTopK:       getEnvInt("RETRIEVAL_TOP_K", 5),
		VectorSearchEnabled: getEnvBool("MONGODB_VECTOR_ENABLED", false),
		TextSearchEnabled:   getEnvBool("MONGODB_TEXT_ENABLED", true),
		VectorIndexName:     getEnv("MONGODB_VECTOR_INDEX", "document_chunks_vector"),
		VectorDimensions:    getEnvInt("VECTOR_DIM", 768),

		// Redis Configuration
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GeminiTier:            getEnv("GEMINI_TIER", "free"),
		EmbeddingCacheTTL:     getEnvDuration("EMBEDDING_CACHE_TTL", 24*time.Hour),

		RenderProviderURL:   getEnv("RENDER_PROVIDER_URL", "https://api.firecrawl.dev/v1/scrape"),
		RenderProviderKey:   getEnv("RENDER_PROVIDER_KEY", ""),
		FallbackProviderURL: getEnv("FALLBACK_PROVIDER_URL", "https://chrome.browserless.io/content"),
		FallbackProviderKey: getEnv("FALLBACK_PROVIDER_KEY", ""),
		LocalRenderEnabled:  getEnvBool("LOCAL_RENDER_ENABLED", false),
		FetchTimeout:        getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		RenderTimeout:       getEnvDuration("RENDER_TIMEOUT", 45*time.Second),
		CrawlMaxPages:       getEnvInt("CRAWL_MAX_PAGES", 50),

		RefreshCron:   getEnv("REFRESH_CRON", "0 3 * * *"),
		RefreshMaxAge: getEnvDuration("REFRESH_MAX_AGE", 168*time.Hour),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
