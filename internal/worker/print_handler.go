package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"labelDesk/internal/batch"
	"labelDesk/internal/binding"
	"labelDesk/internal/database"
	"labelDesk/internal/datasource"
	"labelDesk/internal/errcode"
	"labelDesk/internal/label"
	"labelDesk/internal/metrics"
	"labelDesk/internal/tasks"
)

// ObjectStore 是上传打印产物所需的最小存储接口，*storage.Client 满足它。
type ObjectStore interface {
	PutBytes(ctx context.Context, objectName string, data []byte, contentType string) error
}

// Executor 执行一个打印批次，*batch.Orchestrator 满足它。
type Executor interface {
	ExecuteBatch(ctx context.Context, job batch.Job, r batch.Range) (batch.Result, error)
}

// Warning 记录打印成功但需要提示的问题，保存在 print_jobs.warnings。
type Warning struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Keys    []string `json:"keys"`
}

// GroupObjectPrefix 返回同一次"全部打印"的 PDF 公共前缀。
func GroupObjectPrefix(groupID string) string {
	return fmt.Sprintf("print-jobs/%s/", groupID)
}

// PDFObjectKey 返回批次 PDF 在对象存储中的路径。
func PDFObjectKey(groupID, jobID string) string {
	return GroupObjectPrefix(groupID) + jobID + ".pdf"
}

// PrintTaskHandler 负责消费 print:batch 任务。
type PrintTaskHandler struct {
	db        *gorm.DB
	storage   ObjectStore
	publisher Publisher
	pool      *ExecutorPool
	logger    *slog.Logger
}

// NewPrintTaskHandler 创建任务处理器。
func NewPrintTaskHandler(db *gorm.DB, storage ObjectStore, publisher Publisher, pool *ExecutorPool, logger *slog.Logger) *PrintTaskHandler {
	return &PrintTaskHandler{
		db:        db,
		storage:   storage,
		publisher: publisher,
		pool:      pool,
		logger:    logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *PrintTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.PrintBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("job_id", payload.JobID),
	)

	var job database.PrintJob
	if err := h.db.WithContext(ctx).Where("job_id = ?", payload.JobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("print job not found, skipping task")
			return nil
		}
		log.Error("query print job failed", slog.Any("error", err))
		return err
	}
	if job.Status == database.JobStatusCompleted {
		log.Info("print job already completed, skipping task")
		return nil
	}

	log = log.With(
		slog.String("group_id", job.GroupID),
		slog.Int("batch_index", job.BatchIndex),
	)
	log.Info("Starting print batch task...")

	permanent := false
	defer func() {
		if retErr == nil {
			return
		}
		if !permanent && !isFinalAsynqAttempt(ctx) {
			return
		}
		h.fail(ctx, log, &job, payload.CorrelationID, retErr)
	}()

	if err := h.db.WithContext(ctx).Model(&job).Update("status", database.JobStatusProcessing).Error; err != nil {
		log.Error("mark print job processing failed", slog.Any("error", err))
		return err
	}

	result, resumed, err := printedResult(job)
	if err != nil {
		log.Error("decode printed batch failed", slog.Any("error", err))
		permanent = true
		return fmt.Errorf("decode printed batch: %v: %w", err, asynq.SkipRetry)
	}
	if resumed {
		log.Info("batch already printed, retrying upload",
			slog.Int64("first_number", result.FirstNumber),
			slog.Int64("last_number", result.LastNumber),
		)
	} else {
		batchJob, err := decodeJob(job)
		if err != nil {
			log.Error("decode print job snapshot failed", slog.Any("error", err))
			permanent = true
			return fmt.Errorf("decode job snapshot: %v: %w", err, asynq.SkipRetry)
		}

		executor, err := h.pool.Acquire(ctx)
		if err != nil {
			return err
		}
		result, err = executor.ExecuteBatch(ctx, batchJob, batch.Range{Start: 0, End: batchJob.Rows.Len()})
		h.pool.Release(executor)
		if result.Outcome != "" {
			metrics.ObservePrintCycle(string(result.Outcome), result.Labels)
		}
		if err != nil {
			log.Error("execute print batch failed", slog.Any("error", err))
			return err
		}
		h.savePrinted(ctx, log, &job, result)
	}

	update := map[string]any{
		"status":       database.JobStatusCompleted,
		"outcome":      string(result.Outcome),
		"first_number": result.FirstNumber,
		"last_number":  result.LastNumber,
	}

	warnings := collectWarnings(result)
	if len(result.Document) > 0 {
		objectName := PDFObjectKey(job.GroupID, job.JobID)
		if err := h.storage.PutBytes(ctx, objectName, result.Document, "application/pdf"); err != nil {
			log.Error("upload pdf to minio failed", slog.Any("error", err))
			return err
		}
		update["pdf_object_key"] = objectName
		update["document"] = nil
	} else {
		warnings = append(warnings, Warning{
			Code:    errcode.ResourceMissing,
			Message: "打印完成信号未出现，未生成 PDF",
		})
		log.Warn("print batch finished without document", slog.String("outcome", string(result.Outcome)))
	}
	if len(warnings) > 0 {
		data, err := json.Marshal(warnings)
		if err != nil {
			return fmt.Errorf("marshal warnings: %w", err)
		}
		update["warnings"] = datatypes.JSON(data)
	}

	if err := h.db.WithContext(ctx).Model(&job).Updates(update).Error; err != nil {
		log.Error("update print job failed", slog.Any("error", err))
		return err
	}

	notify := PrintNotifyMessage{
		Status:         database.JobStatusCompleted,
		JobID:          job.JobID,
		GroupID:        job.GroupID,
		CorrelationID:  payload.CorrelationID,
		ErrorCode:      errcode.OK,
		Outcome:        string(result.Outcome),
		Labels:         result.Labels,
		FirstNumber:    result.FirstNumber,
		LastNumber:     result.LastNumber,
		BrokenLinks:    result.BrokenLinks,
		MissingColumns: result.MissingColumns,
	}
	if len(warnings) > 0 {
		notify.ErrorCode = warnings[0].Code
		notify.ErrorMessage = warnings[0].Message
	}
	// 已经领取了单号，推送失败不能触发重试重新打印
	if err := publishNotify(ctx, h.publisher, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
	}

	log.Info("Print batch task completed successfully.",
		slog.String("outcome", string(result.Outcome)),
		slog.Int("labels", result.Labels),
	)
	return nil
}

func (h *PrintTaskHandler) fail(ctx context.Context, log *slog.Logger, job *database.PrintJob, correlationID string, cause error) {
	message := strings.TrimSpace(cause.Error())
	if err := h.db.WithContext(ctx).Model(job).Updates(map[string]any{
		"status":        database.JobStatusFailed,
		"error_message": message,
	}).Error; err != nil {
		log.Error("mark print job failed", slog.Any("error", err))
	}

	notify := PrintNotifyMessage{
		Status:        "error",
		JobID:         job.JobID,
		GroupID:       job.GroupID,
		CorrelationID: correlationID,
		ErrorCode:     errcode.SystemError,
		ErrorMessage:  message,
	}
	if err := publishNotify(ctx, h.publisher, notify); err != nil {
		log.Error("publish print error notification failed", slog.Any("error", err))
	}
}

// savePrinted 在上传前保存打印结果；保存失败只记录日志，本次尝试继续上传。
func (h *PrintTaskHandler) savePrinted(ctx context.Context, log *slog.Logger, job *database.PrintJob, result batch.Result) {
	data, err := json.Marshal(result)
	if err == nil {
		err = h.db.WithContext(ctx).Model(job).Updates(map[string]any{
			"printed_result": datatypes.JSON(data),
			"document":       result.Document,
			"outcome":        string(result.Outcome),
			"first_number":   result.FirstNumber,
			"last_number":    result.LastNumber,
		}).Error
	}
	if err != nil {
		log.Error("save printed batch failed", slog.Any("error", err))
	}
}

// printedResult 返回上一次尝试已打印的结果。
func printedResult(job database.PrintJob) (batch.Result, bool, error) {
	if len(job.PrintedResult) == 0 || string(job.PrintedResult) == "null" {
		return batch.Result{}, false, nil
	}
	var result batch.Result
	if err := json.Unmarshal(job.PrintedResult, &result); err != nil {
		return batch.Result{}, false, err
	}
	result.Document = job.Document
	return result, true, nil
}

// decodeJob 把 print_jobs 中的 JSON 快照还原为编排器输入。
func decodeJob(job database.PrintJob) (batch.Job, error) {
	tpl, err := label.Parse(job.Template)
	if err != nil {
		return batch.Job{}, fmt.Errorf("parse template: %w", err)
	}

	var rows datasource.DataSource
	if err := json.Unmarshal(job.Rows, &rows); err != nil {
		return batch.Job{}, fmt.Errorf("decode rows: %w", err)
	}

	var session binding.Session
	if len(job.Session) > 0 {
		if err := json.Unmarshal(job.Session, &session); err != nil {
			return batch.Job{}, fmt.Errorf("decode session: %w", err)
		}
	}

	var schema []label.SchemaField
	if len(job.Schema) > 0 && string(job.Schema) != "null" {
		if err := json.Unmarshal(job.Schema, &schema); err != nil {
			return batch.Job{}, fmt.Errorf("decode schema: %w", err)
		}
		schema = label.MergeSchema(schema)
	}

	return batch.Job{Template: tpl, Rows: rows, Session: session, Schema: schema}, nil
}

func collectWarnings(result batch.Result) []Warning {
	var warnings []Warning
	if len(result.BrokenLinks) > 0 {
		warnings = append(warnings, Warning{
			Code:    errcode.BrokenBinding,
			Message: "部分元素绑定的字段已不在 schema 中，已按空值打印",
			Keys:    result.BrokenLinks,
		})
	}
	if len(result.MissingColumns) > 0 {
		warnings = append(warnings, Warning{
			Code:    errcode.BrokenBinding,
			Message: "数据行缺少绑定的列，已按空值打印",
			Keys:    result.MissingColumns,
		})
	}
	return warnings
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
