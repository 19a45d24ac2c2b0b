package routes

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"rag-chatbot-platform/internal/config"
	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/internal/parser"
	"rag-chatbot-platform/internal/queue"
	"rag-chatbot-platform/models"
	"rag-chatbot-platform/services"
	"rag-chatbot-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type textSourceRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=200"`
	Content string `json:"content" binding:"required,min=1"`
	IsQA    bool   `json:"is_qa"`
}

type urlSourceRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=200"`
	URL   string `json:"url" binding:"required,url"`
	Crawl bool   `json:"crawl"`
}

// SetupKnowledgeRoutes registers the knowledge source management API.
func SetupKnowledgeRoutes(router *gin.Engine, db *mongo.Database, knowledge *services.KnowledgeService, asynqClient *asynq.Client, cfg *config.Config) {
	group := router.Group("/api/knowledge")
	{
		group.GET("", listSources(db))
		group.GET("/:id", getSource(db))
		group.POST("/upload", uploadDocument(db, knowledge, asynqClient, cfg))
		group.POST("/text", createTextSource(db, knowledge))
		group.POST("/url", createURLSource(db, asynqClient))
		group.POST("/:id/reprocess", reprocessSource(db, asynqClient))
		group.DELETE("/:id", deleteSource(knowledge))
	}
}

func listSources(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		cursor, err := db.Collection("knowledge_sources").Find(c.Request.Context(),
			bson.M{}, options.Find().SetSort(bson.M{"updated_at": -1}))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list knowledge sources", nil)
			return
		}
		defer cursor.Close(c.Request.Context())

		sources := []models.KnowledgeSource{}
		if err := cursor.All(c.Request.Context(), &sources); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode knowledge sources", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sources": sources, "count": len(sources)})
	}
}

func getSource(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid source ID", nil)
			return
		}

		var source models.KnowledgeSource
		err = db.Collection("knowledge_sources").FindOne(c.Request.Context(), bson.M{"_id": id}).Decode(&source)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Knowledge source not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load knowledge source", nil)
			return
		}
		c.JSON(http.StatusOK, source)
	}
}

// uploadDocument accepts a multipart file. Small files process
// synchronously so the caller gets a ready source in one round trip,
// larger ones are queued and come back pending.
func uploadDocument(db *mongo.Database, knowledge *services.KnowledgeService, asynqClient *asynq.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "Missing file upload", nil)
			return
		}
		if fileHeader.Size > cfg.MaxFileSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large",
				"File exceeds the maximum upload size", gin.H{"max_bytes": cfg.MaxFileSize})
			return
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileHeader.Filename), "."))
		if !typeAllowed(cfg.AllowedTypes, ext) {
			utils.RespondWithError(c, http.StatusUnsupportedMediaType, "unsupported_type",
				"File type is not supported", gin.H{"allowed": cfg.AllowedTypes})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read upload", nil)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read upload", nil)
			return
		}

		name := c.PostForm("name")
		if name == "" {
			name = fileHeader.Filename
		}
		source := models.KnowledgeSource{
			Name:      name,
			Type:      sourceTypeForExt(ext),
			Status:    models.SourceStatusPending,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		result, err := db.Collection("knowledge_sources").InsertOne(c.Request.Context(), source)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create knowledge source", nil)
			return
		}
		source.ID = result.InsertedID.(primitive.ObjectID)

		contentType := fileHeader.Header.Get("Content-Type")
		if fileHeader.Size <= cfg.SyncProcessingLimit {
			if err := knowledge.ProcessDocument(c.Request.Context(), source.ID, data, contentType, fileHeader.Filename); err != nil {
				if errors.Is(err, parser.ErrUnsupportedType) {
					utils.RespondWithError(c, http.StatusUnsupportedMediaType, "unsupported_type", err.Error(), nil)
					return
				}
				utils.RespondWithError(c, http.StatusUnprocessableEntity, "processing_failed",
					"Document processing failed", gin.H{"source_id": source.ID.Hex(), "error": err.Error()})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"source_id": source.ID.Hex(), "status": models.SourceStatusReady})
			return
		}

		task, err := queue.NewDocumentTask(source.ID, data, contentType, fileHeader.Filename)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to queue document", nil)
			return
		}
		if _, err := asynqClient.Enqueue(task); err != nil {
			logger.Error("failed to enqueue document task", "source_id", source.ID.Hex(), "error", err)
			utils.RespondWithInternalError(c, "Failed to queue document", nil)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"source_id": source.ID.Hex(), "status": models.SourceStatusPending})
	}
}

func createTextSource(db *mongo.Database, knowledge *services.KnowledgeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req textSourceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}

		sourceType := models.SourceTypeText
		if req.IsQA {
			sourceType = models.SourceTypeQA
		}
		source := models.KnowledgeSource{
			Name:      req.Name,
			Type:      sourceType,
			Status:    models.SourceStatusPending,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		result, err := db.Collection("knowledge_sources").InsertOne(c.Request.Context(), source)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create knowledge source", nil)
			return
		}
		sourceID := result.InsertedID.(primitive.ObjectID)

		if err := knowledge.ProcessText(c.Request.Context(), sourceID, req.Content); err != nil {
			utils.RespondWithError(c, http.StatusUnprocessableEntity, "processing_failed",
				"Text processing failed", gin.H{"source_id": sourceID.Hex(), "error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"source_id": sourceID.Hex(), "status": models.SourceStatusReady})
	}
}

func createURLSource(db *mongo.Database, asynqClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req urlSourceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}

		sourceType := models.SourceTypeURL
		if req.Crawl {
			sourceType = models.SourceTypeWebsite
		}
		source := models.KnowledgeSource{
			Name:      req.Name,
			Type:      sourceType,
			Status:    models.SourceStatusPending,
			Metadata:  models.SourceMetadata{URL: req.URL},
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		result, err := db.Collection("knowledge_sources").InsertOne(c.Request.Context(), source)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create knowledge source", nil)
			return
		}
		sourceID := result.InsertedID.(primitive.ObjectID)

		task, err := queue.NewURLTask(sourceID, req.URL, req.Crawl)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to queue URL", nil)
			return
		}
		if _, err := asynqClient.Enqueue(task); err != nil {
			logger.Error("failed to enqueue url task", "source_id", sourceID.Hex(), "error", err)
			utils.RespondWithInternalError(c, "Failed to queue URL", nil)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"source_id": sourceID.Hex(), "status": models.SourceStatusPending})
	}
}

// reprocessSource re-ingests a URL source from its origin. Uploads are
// rejected: their original bytes were not retained.
func reprocessSource(db *mongo.Database, asynqClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid source ID", nil)
			return
		}

		var source models.KnowledgeSource
		err = db.Collection("knowledge_sources").FindOne(c.Request.Context(), bson.M{"_id": id}).Decode(&source)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Knowledge source not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load knowledge source", nil)
			return
		}

		if !source.Reprocessable() {
			utils.RespondWithError(c, http.StatusBadRequest, "reprocess_unsupported",
				"Only URL sources can be reprocessed", gin.H{"type": source.Type})
			return
		}

		task, err := queue.NewReprocessTask(id)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to queue reprocess", nil)
			return
		}
		if _, err := asynqClient.Enqueue(task); err != nil {
			logger.Error("failed to enqueue reprocess task", "source_id", id.Hex(), "error", err)
			utils.RespondWithInternalError(c, "Failed to queue reprocess", nil)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"source_id": id.Hex(), "status": models.SourceStatusPending})
	}
}

func deleteSource(knowledge *services.KnowledgeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid source ID", nil)
			return
		}
		if err := knowledge.DeleteSource(c.Request.Context(), id); err != nil {
			utils.RespondWithInternalError(c, "Failed to delete knowledge source", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": id.Hex()})
	}
}

func typeAllowed(allowed []string, ext string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

func sourceTypeForExt(ext string) models.SourceType {
	switch ext {
	case "pdf":
		return models.SourceTypePDF
	case "md", "markdown":
		return models.SourceTypeMD
	case "docx":
		return models.SourceTypeDOCX
	case "xlsx":
		return models.SourceTypeXLSX
	default:
		return models.SourceTypeTXT
	}
}
