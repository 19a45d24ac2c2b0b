package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// RetrievedChunk is one fused search hit, carrying enough of its parent
// source for citation without a second lookup.
type RetrievedChunk struct {
	ChunkID    string             `json:"chunk_id"`
	SourceID   primitive.ObjectID `json:"source_id"`
	SourceName string             `json:"source_name"`
	Content    string             `json:"content"`
	Score      float64            `json:"score"`
	Metadata   ChunkMetadata      `json:"metadata"`
}

// RagContext is the per-query retrieval result. It is never persisted.
type RagContext struct {
	Chunks              []RetrievedChunk `json:"chunks"`
	TotalTokensEstimate int              `json:"total_tokens_estimate"`
}

// RagCitation is the audit/citation record extracted from a RagContext.
type RagCitation struct {
	SourceID   primitive.ObjectID `json:"source_id"`
	SourceName string             `json:"source_name"`
	ChunkID    string             `json:"chunk_id"`
	Score      float64            `json:"score"`
	PageNumber int                `json:"page_number,omitempty"`
}
