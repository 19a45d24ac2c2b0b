package routes

import (
	"net/http"
	"time"

	"rag-chatbot-platform/internal/ai"
	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/internal/retrieval"
	"rag-chatbot-platform/models"
	"rag-chatbot-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const baseSystemPrompt = `You are a helpful assistant answering questions on behalf of this business. Be concise and friendly. Use the reference material you are given; when you have no reference for something, say so plainly.`

// SetupChatRoutes registers the chat API and a raw retrieval endpoint
// for inspecting what the retriever returns for a query.
func SetupChatRoutes(router *gin.Engine, db *mongo.Database, retriever *retrieval.Retriever, gemini *ai.GeminiClient) {
	group := router.Group("/api/chat")
	{
		group.POST("", sendMessage(db, retriever, gemini))
		group.GET("/history/:conversationID", conversationHistory(db))
	}
	router.POST("/api/retrieve", retrieveContext(retriever))
}

type retrieveRequest struct {
	Query         string  `json:"query" binding:"required,min=1,max=2000"`
	TopK          int     `json:"top_k"`
	Mode          string  `json:"mode"`
	VectorWeight  float64 `json:"vector_weight"`
	KeywordWeight float64 `json:"keyword_weight"`
}

func retrieveContext(retriever *retrieval.Retriever) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req retrieveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}
		switch req.Mode {
		case "", string(retrieval.ModeHybrid), string(retrieval.ModeVector), string(retrieval.ModeKeyword):
		default:
			utils.RespondWithBadRequest(c, "Unknown retrieval mode", gin.H{"mode": req.Mode})
			return
		}

		result, err := retriever.Retrieve(c.Request.Context(), req.Query, retrieval.Options{
			TopK:          req.TopK,
			Mode:          retrieval.Mode(req.Mode),
			VectorWeight:  req.VectorWeight,
			KeywordWeight: req.KeywordWeight,
		})
		if err != nil {
			utils.RespondWithInternalError(c, "Retrieval failed", nil)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// sendMessage answers one chat turn: retrieve context, ground the
// system prompt, generate, persist. Retrieval failing degrades to a
// contextless reply instead of failing the turn.
func sendMessage(db *mongo.Database, retriever *retrieval.Retriever, gemini *ai.GeminiClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}

		conversationID := req.ConversationID
		if conversationID == "" {
			conversationID = uuid.New().String()
		}

		ragContext, err := retriever.Retrieve(c.Request.Context(), req.Message, retrieval.Options{})
		if err != nil {
			logger.Warn("retrieval failed, answering without context", "error", err)
			ragContext = &models.RagContext{}
		}

		systemPrompt := retrieval.AugmentSystemPrompt(baseSystemPrompt, ragContext)
		reply, tokens, err := gemini.GenerateReply(c.Request.Context(), systemPrompt, req.Message)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadGateway, "generation_failed",
				"Failed to generate a reply", nil)
			return
		}

		citations := retrieval.ExtractRagMetadata(ragContext)
		message := models.Message{
			Message:        req.Message,
			Reply:          reply,
			ConversationID: conversationID,
			TokenCost:      tokens,
			Citations:      citations,
			Timestamp:      time.Now(),
		}
		if _, err := db.Collection("messages").InsertOne(c.Request.Context(), message); err != nil {
			// The user already has their answer, losing the record is
			// log-worthy but not fatal.
			logger.Error("failed to persist message", "conversation_id", conversationID, "error", err)
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Reply:          reply,
			TokensUsed:     tokens,
			ConversationID: conversationID,
			Citations:      citations,
			Timestamp:      message.Timestamp,
		})
	}
}

func conversationHistory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationID")
		if conversationID == "" {
			utils.RespondWithBadRequest(c, "Missing conversation ID", nil)
			return
		}

		cursor, err := db.Collection("messages").Find(c.Request.Context(),
			bson.M{"conversation_id": conversationID},
			options.Find().SetSort(bson.M{"timestamp": 1}).SetLimit(200))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load history", nil)
			return
		}
		defer cursor.Close(c.Request.Context())

		messages := []models.Message{}
		if err := cursor.All(c.Request.Context(), &messages); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode history", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "messages": messages})
	}
}
