package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChunkMetadata carries positional and structural metadata for a chunk.
type ChunkMetadata struct {
	ChunkIndex  int      `bson:"chunk_index" json:"chunk_index"`
	StartOffset int      `bson:"start_offset" json:"start_offset"`
	EndOffset   int      `bson:"end_offset" json:"end_offset"`
	Page        int      `bson:"page,omitempty" json:"page,omitempty"` // 1-based, 0 when not page-scoped
	EntityTypes []string `bson:"entity_types,omitempty" json:"entity_types,omitempty"`
	AtomicQA    bool     `bson:"atomic_qa,omitempty" json:"atomic_qa,omitempty"`
}

// DocumentChunk is a denormalized retrievable unit of text.
// Keeping a separate collection enables efficient $text/$vectorSearch.
// Content is never empty and never matches a poison pattern; the
// embedding stays nil until computed.
type DocumentChunk struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SourceID  primitive.ObjectID `bson:"source_id" json:"source_id"`
	ChunkID   string             `bson:"chunk_id" json:"chunk_id"`
	Content   string             `bson:"content" json:"content"`
	Keywords  []string           `bson:"keywords,omitempty" json:"keywords,omitempty"` // feeds the text index
	Embedding []float32          `bson:"embedding,omitempty" json:"-"`
	Metadata  ChunkMetadata      `bson:"metadata" json:"metadata"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
