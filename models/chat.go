// models/chat.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one chat turn with its reply and citation trail.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Message        string             `bson:"message" json:"message"`
	Reply          string             `bson:"reply" json:"reply"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	TokenCost      int                `bson:"token_cost" json:"token_cost"`
	Citations      []RagCitation      `bson:"citations,omitempty" json:"citations,omitempty"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}

type ChatRequest struct {
	Message        string `json:"message" binding:"required,min=1,max=2000"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ChatResponse struct {
	Reply          string        `json:"reply"`
	TokensUsed     int           `json:"tokens_used"`
	ConversationID string        `json:"conversation_id"`
	Citations      []RagCitation `json:"citations,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}
