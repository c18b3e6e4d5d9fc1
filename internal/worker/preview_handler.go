package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"labelDesk/internal/batch"
	"labelDesk/internal/binding"
	"labelDesk/internal/label"
	"labelDesk/internal/render"
	"labelDesk/internal/tasks"
)

const (
	previewQuality   = 80
	previewURLTTL    = 24 * time.Hour
	previewResultTTL = 24 * time.Hour
)

// 预览结果状态。
const (
	PreviewStatusCompleted = "completed"
	PreviewStatusFailed    = "failed"
)

// PreviewKey 返回保存预览结果的 Redis 键。
func PreviewKey(previewID string) string {
	return "preview:" + previewID
}

// PreviewResult 是写入 Redis 的预览结果，API 原样返回。
type PreviewResult struct {
	Status       string   `json:"status"`
	PreviewID    string   `json:"preview_id"`
	URL          string   `json:"url,omitempty"`
	ObjectKey    string   `json:"object_key,omitempty"`
	BrokenLinks  []string `json:"broken_links,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// PreviewStore 上传截图并签发下载链接。
type PreviewStore interface {
	ObjectStore
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// Screenshotter 把打印面截成图片，*pdf.Host 满足它。
type Screenshotter interface {
	Screenshot(ctx context.Context, s render.Surface, quality int) ([]byte, error)
}

// ResultWriter 是写入预览结果所需的 Redis 能力。
type ResultWriter interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// PreviewTaskHandler 负责 label:preview 任务：预览模式解析一张标签并截图。
type PreviewTaskHandler struct {
	storage  PreviewStore
	results  ResultWriter
	renderer batch.Renderer
	shooter  Screenshotter
	resolver *binding.Resolver
	logger   *slog.Logger
}

func NewPreviewTaskHandler(
	storage PreviewStore,
	results ResultWriter,
	renderer batch.Renderer,
	shooter Screenshotter,
	resolver *binding.Resolver,
	logger *slog.Logger,
) *PreviewTaskHandler {
	return &PreviewTaskHandler{
		storage:  storage,
		results:  results,
		renderer: renderer,
		shooter:  shooter,
		resolver: resolver,
		logger:   logger,
	}
}

func (h *PreviewTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log := h.logger

	var payload tasks.LabelPreviewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal label preview payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("preview_id", payload.PreviewID),
		slog.String("correlation_id", payload.CorrelationID),
	)
	log.Info("Starting label preview task...")

	result, err := h.preview(ctx, payload)
	if err != nil {
		log.Error("label preview failed", slog.Any("error", err))
		result = PreviewResult{
			Status:       PreviewStatusFailed,
			PreviewID:    payload.PreviewID,
			ErrorMessage: err.Error(),
		}
	}

	data, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return fmt.Errorf("marshal preview result: %w", marshalErr)
	}
	if setErr := h.results.Set(ctx, PreviewKey(payload.PreviewID), data, previewResultTTL).Err(); setErr != nil {
		log.Error("store preview result failed", slog.Any("error", setErr))
		return setErr
	}
	if err != nil {
		return err
	}

	log.Info("Label preview completed.")
	return nil
}

func (h *PreviewTaskHandler) preview(ctx context.Context, payload tasks.LabelPreviewPayload) (PreviewResult, error) {
	tpl := payload.Template
	values := h.resolver.ResolveTemplate(tpl, binding.Context{
		Mode:    binding.ModePreview,
		Session: payload.Session,
		Row:     payload.Row,
	})

	var unlinked []string
	if payload.Schema != nil {
		unlinked = binding.BrokenLinks(tpl, label.MergeSchema(payload.Schema))
	}

	surface, err := h.renderer.Render(render.Document{
		Template: tpl,
		Labels:   []render.Label{{Values: values}},
		Unlinked: unlinked,
	})
	if err != nil {
		return PreviewResult{}, fmt.Errorf("render preview: %w", err)
	}

	image, err := h.shooter.Screenshot(ctx, surface, previewQuality)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("capture preview screenshot: %w", err)
	}

	objectName := fmt.Sprintf("previews/%s.jpg", payload.PreviewID)
	if err := h.storage.PutBytes(ctx, objectName, image, "image/jpeg"); err != nil {
		return PreviewResult{}, fmt.Errorf("upload preview image: %w", err)
	}

	url, err := h.storage.GeneratePresignedURL(ctx, objectName, previewURLTTL)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("generate preview presigned url: %w", err)
	}

	return PreviewResult{
		Status:      PreviewStatusCompleted,
		PreviewID:   payload.PreviewID,
		URL:         url,
		ObjectKey:   objectName,
		BrokenLinks: unlinked,
	}, nil
}
