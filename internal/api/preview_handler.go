package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"labelDesk/internal/api/middleware"
	"labelDesk/internal/tasks"
	"labelDesk/internal/worker"
)

// ResultReader 读取 worker 写入的预览结果，*redis.Client 满足它。
type ResultReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// PreviewHandler 投递截图预览任务并查询结果。
type PreviewHandler struct {
	queue   TaskEnqueuer
	results ResultReader
}

func NewPreviewHandler(queue TaskEnqueuer, results ResultReader) *PreviewHandler {
	return &PreviewHandler{queue: queue, results: results}
}

// Enqueue 投递 label:preview 任务，返回预览 ID。
func (h *PreviewHandler) Enqueue(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Template.Width <= 0 || req.Template.Height <= 0 {
		BadRequest(c, "template width and height must be positive")
		return
	}

	previewID := uuid.NewString()
	task, err := tasks.NewLabelPreviewTask(tasks.LabelPreviewPayload{
		PreviewID:     previewID,
		CorrelationID: middleware.GetCorrelationID(c),
		Template:      req.Template,
		Session:       req.Session,
		Row:           req.Row,
		Schema:        req.Schema,
	})
	if err != nil {
		Internal(c, "failed to build preview task")
		return
	}
	if _, err := h.queue.EnqueueContext(c.Request.Context(), task); err != nil {
		middleware.LoggerFromContext(c).Error("enqueue preview task failed", slog.Any("error", err))
		Internal(c, "failed to enqueue preview")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"preview_id": previewID, "status": "pending"})
}

// Get 返回预览结果；worker 尚未写入时状态为 pending。
func (h *PreviewHandler) Get(c *gin.Context) {
	previewID := c.Param("id")
	data, err := h.results.Get(c.Request.Context(), worker.PreviewKey(previewID)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.JSON(http.StatusOK, gin.H{"preview_id": previewID, "status": "pending"})
		return
	}
	if err != nil {
		Internal(c, "failed to read preview result")
		return
	}

	var result worker.PreviewResult
	if err := json.Unmarshal(data, &result); err != nil {
		Internal(c, "corrupt preview result")
		return
	}
	c.JSON(http.StatusOK, result)
}
