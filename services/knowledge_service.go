package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rag-chatbot-platform/internal/ai"
	"rag-chatbot-platform/internal/chunker"
	"rag-chatbot-platform/internal/config"
	"rag-chatbot-platform/internal/extractor"
	"rag-chatbot-platform/internal/fetcher"
	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/internal/parser"
	"rag-chatbot-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotReprocessable marks sources whose original bytes are gone.
// Only URL-originated sources can be re-ingested from origin.
var ErrNotReprocessable = fmt.Errorf("source cannot be reprocessed: original content not retained")

// KnowledgeService runs the ingestion pipeline: parse or fetch, chunk,
// filter, embed, persist. Every path lands the source in ready or
// error, a source is never left stuck in processing.
type KnowledgeService struct {
	db       *mongo.Database
	embedder *ai.Embedder
	fetcher  *fetcher.Fetcher
	cfg      *config.Config
}

func NewKnowledgeService(db *mongo.Database, embedder *ai.Embedder, f *fetcher.Fetcher, cfg *config.Config) *KnowledgeService {
	return &KnowledgeService{db: db, embedder: embedder, fetcher: f, cfg: cfg}
}

func (s *KnowledgeService) sources() *mongo.Collection {
	return s.db.Collection("knowledge_sources")
}

func (s *KnowledgeService) chunks() *mongo.Collection {
	return s.db.Collection("document_chunks")
}

// ProcessDocument ingests an uploaded file for an existing source
// record. The source type is derived from what the parser recognized.
func (s *KnowledgeService) ProcessDocument(ctx context.Context, sourceID primitive.ObjectID, data []byte, contentType, filename string) error {
	if err := s.markProcessing(ctx, sourceID); err != nil {
		return err
	}

	parsed, err := parser.Parse(data, contentType, filename)
	if err != nil {
		s.markError(ctx, sourceID, err)
		return err
	}

	meta := models.SourceMetadata{
		ContentSize: int64(len(data)),
		PageCount:   parsed.PageCount,
	}
	return s.indexText(ctx, sourceID, parsed.Text, parsed.Markdown, meta)
}

// ProcessText ingests pasted text or Q&A content directly.
func (s *KnowledgeService) ProcessText(ctx context.Context, sourceID primitive.ObjectID, text string) error {
	if err := s.markProcessing(ctx, sourceID); err != nil {
		return err
	}
	meta := models.SourceMetadata{ContentSize: int64(len(text))}
	return s.indexText(ctx, sourceID, text, false, meta)
}

// ProcessURL ingests a web page, or a whole site when crawl is set.
// Pages go through the tiered fetcher and the HTML extractor; render
// tiers that already produce Markdown skip extraction.
func (s *KnowledgeService) ProcessURL(ctx context.Context, sourceID primitive.ObjectID, rawURL string, crawl bool) error {
	if err := s.markProcessing(ctx, sourceID); err != nil {
		return err
	}

	var pages []*fetcher.Page
	if crawl {
		crawled, err := s.fetcher.Crawl(rawURL, s.cfg.CrawlMaxPages)
		if err != nil {
			s.markError(ctx, sourceID, err)
			return err
		}
		for i := range crawled {
			pages = append(pages, &crawled[i])
		}
	} else {
		page, err := s.fetcher.Fetch(ctx, rawURL)
		if err != nil {
			s.markError(ctx, sourceID, err)
			return err
		}
		pages = []*fetcher.Page{page}
	}

	var sections []string
	var title string
	markdown := false
	for _, page := range pages {
		if page.Markdown != "" {
			sections = append(sections, page.Markdown)
			markdown = true
			if title == "" {
				title = page.Title
			}
			continue
		}
		ex, err := extractor.Extract(page.HTML, page.URL)
		if err != nil {
			logger.Warn("extraction failed for page", "url", page.URL, "error", err)
			continue
		}
		for _, w := range ex.Warnings {
			logger.Warn("extraction warning", "url", page.URL, "warning", w)
		}
		if title == "" {
			title = ex.Title
		}
		if strings.TrimSpace(ex.Text) != "" {
			sections = append(sections, ex.Text)
			markdown = true
		}
	}

	text := strings.TrimSpace(strings.Join(sections, "\n\n"))
	if text == "" {
		err := fmt.Errorf("no content extracted from %s", rawURL)
		s.markError(ctx, sourceID, err)
		return err
	}

	meta := models.SourceMetadata{
		ContentSize: int64(len(text)),
		URL:         rawURL,
		PageTitle:   title,
	}
	return s.indexText(ctx, sourceID, text, markdown, meta)
}

// ReprocessKnowledgeSource re-ingests a URL source from its origin.
// Existing chunks are purged before the new ones are written so a
// failed refresh cannot leave a mix of old and new content.
func (s *KnowledgeService) ReprocessKnowledgeSource(ctx context.Context, sourceID primitive.ObjectID) error {
	var source models.KnowledgeSource
	if err := s.sources().FindOne(ctx, bson.M{"_id": sourceID}).Decode(&source); err != nil {
		return err
	}
	if !source.Reprocessable() || source.Metadata.URL == "" {
		return ErrNotReprocessable
	}

	if _, err := s.chunks().DeleteMany(ctx, bson.M{"source_id": sourceID}); err != nil {
		return fmt.Errorf("failed to purge existing chunks: %w", err)
	}
	return s.ProcessURL(ctx, sourceID, source.Metadata.URL, source.Type == models.SourceTypeWebsite)
}

// DeleteSource removes a source and all its chunks. Chunks go first so
// a crash between the two deletes cannot orphan them.
func (s *KnowledgeService) DeleteSource(ctx context.Context, sourceID primitive.ObjectID) error {
	if _, err := s.chunks().DeleteMany(ctx, bson.M{"source_id": sourceID}); err != nil {
		return err
	}
	_, err := s.sources().DeleteOne(ctx, bson.M{"_id": sourceID})
	return err
}

// RefreshStaleSources re-ingests URL sources whose content is older
// than the configured max age. Wired to the cron scheduler.
func (s *KnowledgeService) RefreshStaleSources(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.RefreshMaxAge)
	cursor, err := s.sources().Find(ctx, bson.M{
		"type":       bson.M{"$in": []models.SourceType{models.SourceTypeURL, models.SourceTypeWebsite}},
		"status":     models.SourceStatusReady,
		"updated_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		logger.Error("failed to list stale sources", "error", err)
		return
	}
	defer cursor.Close(ctx)

	var stale []models.KnowledgeSource
	if err := cursor.All(ctx, &stale); err != nil {
		logger.Error("failed to decode stale sources", "error", err)
		return
	}

	for _, source := range stale {
		logger.Info("refreshing stale source", "source_id", source.ID.Hex(), "url", source.Metadata.URL)
		if err := s.ReprocessKnowledgeSource(ctx, source.ID); err != nil {
			logger.Error("refresh failed", "source_id", source.ID.Hex(), "error", err)
		}
	}
}

// indexText is the shared back half of every ingestion path: chunk,
// filter poison, embed, persist, mark ready.
func (s *KnowledgeService) indexText(ctx context.Context, sourceID primitive.ObjectID, text string, isMarkdown bool, meta models.SourceMetadata) error {
	chunks := s.chunkText(text, isMarkdown)
	chunks, discarded := chunker.FilterPoison(chunks)

	meta.ChunkCount = len(chunks)
	meta.DiscardedChunks = discarded

	// Nothing indexable is still a completed ingestion. The source
	// goes ready with zero chunks rather than erroring, operators see
	// the count and decide.
	if len(chunks) == 0 {
		logger.Warn("source produced no indexable chunks", "source_id", sourceID.Hex(), "discarded", discarded)
		return s.markReady(ctx, sourceID, meta)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		s.markError(ctx, sourceID, err)
		return err
	}

	docs := make([]interface{}, len(chunks))
	now := time.Now()
	for i, c := range chunks {
		docs[i] = models.DocumentChunk{
			SourceID:  sourceID,
			ChunkID:   c.ChunkID,
			Content:   c.Text,
			Keywords:  c.Keywords,
			Embedding: vectors[i],
			Metadata: models.ChunkMetadata{
				ChunkIndex:  c.Index,
				StartOffset: c.StartOffset,
				EndOffset:   c.EndOffset,
				Page:        c.Page,
				EntityTypes: c.EntityTypes,
				AtomicQA:    c.AtomicQA,
			},
			CreatedAt: now,
		}
	}
	if _, err := s.chunks().InsertMany(ctx, docs); err != nil {
		s.markError(ctx, sourceID, err)
		return err
	}

	logger.Info("source indexed",
		"source_id", sourceID.Hex(),
		"chunks", len(chunks),
		"discarded", discarded,
	)
	return s.markReady(ctx, sourceID, meta)
}

// chunkText picks the chunking strategy from content shape: Q&A
// structure wins, then page-delimited text, then Markdown sections,
// then plain paragraphs.
func (s *KnowledgeService) chunkText(text string, isMarkdown bool) []chunker.Chunk {
	opts := chunker.Options{
		MaxChunkSize:     s.cfg.MaxChunkSize,
		ChunkOverlap:     s.cfg.ChunkOverlap,
		MinChunkSize:     s.cfg.MinChunkSize,
		PreserveEntities: true,
		EntityPadding:    s.cfg.EntityPadding,
	}

	var chunks []chunker.Chunk
	switch {
	case chunker.LooksLikeQA(text):
		chunks = chunker.ChunkQAPairs(text, opts)
	case strings.Contains(text, "\f"):
		chunks = chunker.ChunkPages(text, opts)
	case isMarkdown:
		chunks = chunker.ChunkSections(text, opts)
	default:
		chunks = chunker.ChunkParagraphs(text, opts)
	}
	// The merge pass is idempotent, so running it here covers the
	// paragraph and page paths without disturbing sections (already
	// merged) or Q&A pairs (atomic, never merged).
	chunks = chunker.MergeSmall(chunks, opts.MaxChunkSize)
	return chunker.InjectOverlap(chunks, opts.ChunkOverlap)
}

func (s *KnowledgeService) markProcessing(ctx context.Context, sourceID primitive.ObjectID) error {
	now := time.Now()
	result, err := s.sources().UpdateOne(ctx, bson.M{"_id": sourceID}, bson.M{
		"$set": bson.M{
			"status":                 models.SourceStatusProcessing,
			"metadata.processing_at": now,
			"updated_at":             now,
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *KnowledgeService) markReady(ctx context.Context, sourceID primitive.ObjectID, meta models.SourceMetadata) error {
	now := time.Now()
	set := bson.M{
		"status":                     models.SourceStatusReady,
		"metadata.chunk_count":       meta.ChunkCount,
		"metadata.discarded_chunks":  meta.DiscardedChunks,
		"metadata.content_size":      meta.ContentSize,
		"metadata.processed_at":      now,
		"updated_at":                 now,
	}
	if meta.URL != "" {
		set["metadata.url"] = meta.URL
	}
	if meta.PageTitle != "" {
		set["metadata.page_title"] = meta.PageTitle
	}
	if meta.PageCount > 0 {
		set["metadata.page_count"] = meta.PageCount
	}
	_, err := s.sources().UpdateOne(ctx, bson.M{"_id": sourceID}, bson.M{
		"$set":   set,
		"$unset": bson.M{"metadata.error_message": ""},
	})
	return err
}

func (s *KnowledgeService) markError(ctx context.Context, sourceID primitive.ObjectID, cause error) {
	now := time.Now()
	_, err := s.sources().UpdateOne(ctx, bson.M{"_id": sourceID}, bson.M{
		"$set": bson.M{
			"status":                 models.SourceStatusError,
			"metadata.error_message": cause.Error(),
			"updated_at":             now,
		},
	})
	if err != nil {
		logger.Error("failed to record source error", "source_id", sourceID.Hex(), "error", err)
	}
}
