package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SourceType identifies where a knowledge source came from.
type SourceType string

const (
	SourceTypeText    SourceType = "text"
	SourceTypeWebsite SourceType = "website"
	SourceTypeQA      SourceType = "qa"
	SourceTypePDF     SourceType = "pdf"
	SourceTypeTXT     SourceType = "txt"
	SourceTypeMD      SourceType = "md"
	SourceTypeDOCX    SourceType = "docx"
	SourceTypeXLSX    SourceType = "xlsx"
	SourceTypeURL     SourceType = "url"
)

// SourceStatus is the ingestion lifecycle state of a knowledge source.
type SourceStatus string

const (
	SourceStatusPending    SourceStatus = "pending"
	SourceStatusProcessing SourceStatus = "processing"
	SourceStatusReady      SourceStatus = "ready"
	SourceStatusError      SourceStatus = "error"
)

// SourceMetadata holds typed processing metadata for a knowledge source.
// Each field is scoped to the source types that produce it; there is no
// free-form metadata bag.
type SourceMetadata struct {
	ContentSize     int64      `bson:"content_size,omitempty" json:"content_size,omitempty"`
	URL             string     `bson:"url,omitempty" json:"url,omitempty"`
	PageTitle       string     `bson:"page_title,omitempty" json:"page_title,omitempty"`
	PageCount       int        `bson:"page_count,omitempty" json:"page_count,omitempty"`
	ChunkCount      int        `bson:"chunk_count" json:"chunk_count"`
	DiscardedChunks int        `bson:"discarded_chunks,omitempty" json:"discarded_chunks,omitempty"`
	ErrorMessage    string     `bson:"error_message,omitempty" json:"error_message,omitempty"`
	ProcessingAt    *time.Time `bson:"processing_at,omitempty" json:"processing_at,omitempty"`
	ProcessedAt     *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// KnowledgeSource is a logical document uploaded by an operator.
// Lifecycle: pending -> processing -> ready | error. Deleting a source
// cascades to its chunks; a chunk never outlives its source.
type KnowledgeSource struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Type      SourceType         `bson:"type" json:"type"`
	Status    SourceStatus       `bson:"status" json:"status"`
	Metadata  SourceMetadata     `bson:"metadata" json:"metadata"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Reprocessable reports whether the source can be re-ingested from its
// origin. Only URL-originated sources qualify: raw uploaded bytes are
// not retained after ingestion.
func (s *KnowledgeSource) Reprocessable() bool {
	return s.Type == SourceTypeURL || s.Type == SourceTypeWebsite
}
