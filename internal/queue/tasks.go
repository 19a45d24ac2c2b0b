package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/services"
)

const (
	TaskProcessDocument = "knowledge:process_document"
	TaskProcessURL      = "knowledge:process_url"
	TaskReprocessSource = "knowledge:reprocess"
)

type DocumentPayload struct {
	SourceID    string `json:"source_id"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
	Data        []byte `json:"data"`
}

type URLPayload struct {
	SourceID string `json:"source_id"`
	URL      string `json:"url"`
	Crawl    bool   `json:"crawl"`
}

type ReprocessPayload struct {
	SourceID string `json:"source_id"`
}

// NewDocumentTask enqueues ingestion of an uploaded file. Large uploads
// go through here so the HTTP handler can return immediately with the
// source in pending.
func NewDocumentTask(sourceID primitive.ObjectID, data []byte, contentType, filename string) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentPayload{
		SourceID:    sourceID.Hex(),
		ContentType: contentType,
		Filename:    filename,
		Data:        data,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskProcessDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

func NewURLTask(sourceID primitive.ObjectID, url string, crawl bool) (*asynq.Task, error) {
	payload, err := json.Marshal(URLPayload{
		SourceID: sourceID.Hex(),
		URL:      url,
		Crawl:    crawl,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskProcessURL,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
		asynq.Queue("default"),
	), nil
}

func NewReprocessTask(sourceID primitive.ObjectID) (*asynq.Task, error) {
	payload, err := json.Marshal(ReprocessPayload{SourceID: sourceID.Hex()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskReprocessSource,
		payload,
		asynq.MaxRetry(2),
		asynq.Timeout(15*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor handles ingestion tasks on the worker.
type TaskProcessor struct {
	knowledge *services.KnowledgeService
}

func NewTaskProcessor(knowledge *services.KnowledgeService) *TaskProcessor {
	return &TaskProcessor{knowledge: knowledge}
}

// Register binds the handlers on an asynq mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskProcessDocument, p.ProcessDocument)
	mux.HandleFunc(TaskProcessURL, p.ProcessURL)
	mux.HandleFunc(TaskReprocessSource, p.Reprocess)
}

func (p *TaskProcessor) ProcessDocument(ctx context.Context, t *asynq.Task) error {
	var payload DocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}
	sourceID, err := primitive.ObjectIDFromHex(payload.SourceID)
	if err != nil {
		return fmt.Errorf("bad source id: %w", asynq.SkipRetry)
	}

	logger.Info("processing document task", "source_id", payload.SourceID, "filename", payload.Filename)
	return p.knowledge.ProcessDocument(ctx, sourceID, payload.Data, payload.ContentType, payload.Filename)
}

func (p *TaskProcessor) ProcessURL(ctx context.Context, t *asynq.Task) error {
	var payload URLPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}
	sourceID, err := primitive.ObjectIDFromHex(payload.SourceID)
	if err != nil {
		return fmt.Errorf("bad source id: %w", asynq.SkipRetry)
	}

	logger.Info("processing url task", "source_id", payload.SourceID, "url", payload.URL, "crawl", payload.Crawl)
	return p.knowledge.ProcessURL(ctx, sourceID, payload.URL, payload.Crawl)
}

func (p *TaskProcessor) Reprocess(ctx context.Context, t *asynq.Task) error {
	var payload ReprocessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}
	sourceID, err := primitive.ObjectIDFromHex(payload.SourceID)
	if err != nil {
		return fmt.Errorf("bad source id: %w", asynq.SkipRetry)
	}
	return p.knowledge.ReprocessKnowledgeSource(ctx, sourceID)
}
