package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"labelDesk/internal/api/middleware"
	"labelDesk/internal/batch"
	"labelDesk/internal/binding"
	"labelDesk/internal/config"
	"labelDesk/internal/database"
	"labelDesk/internal/datasource"
	"labelDesk/internal/errcode"
	"labelDesk/internal/label"
	"labelDesk/internal/tasks"
	"labelDesk/internal/worker"
)

// TaskEnqueuer 是投递 asynq 任务的最小接口，*asynq.Client 满足它。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ArtifactStore 管理打印产物：签发下载链接与按组清理，*storage.Client 满足它。
type ArtifactStore interface {
	GeneratePresignedURLWithParams(ctx context.Context, objectKey string, duration time.Duration, params map[string]string) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// PrintHandler 驱动批量打印：规划批次、确认闸门、创建任务与下载产物。
type PrintHandler struct {
	db      *gorm.DB
	queue   TaskEnqueuer
	storage ArtifactStore
	cfg     config.PrintConfig
}

func NewPrintHandler(db *gorm.DB, queue TaskEnqueuer, storage ArtifactStore, cfg config.PrintConfig) *PrintHandler {
	return &PrintHandler{db: db, queue: queue, storage: storage, cfg: cfg}
}

type planRequest struct {
	Total     int `json:"total"`
	BatchSize int `json:"batch_size"`
}

// Plan 返回批次划分以及是否需要二次确认，不创建任何任务。
func (h *PrintHandler) Plan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Total < 0 {
		BadRequest(c, "total must not be negative")
		return
	}
	size := req.BatchSize
	if size <= 0 {
		size = h.cfg.BatchSize
	}

	gate := batch.RequestPrintAll(req.Total, h.cfg.WarnThreshold)
	ranges := batch.PlanBatches(req.Total, size)
	if ranges == nil {
		ranges = []batch.Range{}
	}
	c.JSON(http.StatusOK, gin.H{
		"batches":            ranges,
		"batch_size":         size,
		"needs_confirmation": gate.NeedsConfirmation(),
		"threshold":          gate.Threshold,
	})
}

// printJobsRequest 的数据行可以是导入后的 rows，也可以是表头加记录（表头按导入规则规范化）。
type printJobsRequest struct {
	Template  label.Template      `json:"template"`
	Rows      []datasource.Row    `json:"rows"`
	Headers   []string            `json:"headers"`
	Records   [][]any             `json:"records"`
	Session   binding.Session     `json:"session"`
	Schema    []label.SchemaField `json:"schema"`
	Confirmed bool                `json:"confirmed"`
	BatchSize int                 `json:"batch_size"`
}

func (r printJobsRequest) dataSource() datasource.DataSource {
	if len(r.Headers) > 0 {
		return datasource.FromRecords(r.Headers, r.Records)
	}
	return datasource.DataSource{Rows: r.Rows}
}

type jobView struct {
	JobID        string          `json:"job_id"`
	GroupID      string          `json:"group_id"`
	Status       string          `json:"status"`
	Outcome      string          `json:"outcome,omitempty"`
	Range        batch.Range     `json:"range"`
	BatchIndex   int             `json:"batch_index"`
	BatchCount   int             `json:"batch_count"`
	FirstNumber  int64           `json:"first_number,omitempty"`
	LastNumber   int64           `json:"last_number,omitempty"`
	PdfReady     bool            `json:"pdf_ready"`
	Warnings     json.RawMessage `json:"warnings,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func newJobView(job database.PrintJob) jobView {
	v := jobView{
		JobID:        job.JobID,
		GroupID:      job.GroupID,
		Status:       job.Status,
		Outcome:      job.Outcome,
		Range:        batch.Range{Start: job.RangeStart, End: job.RangeEnd},
		BatchIndex:   job.BatchIndex,
		BatchCount:   job.BatchCount,
		FirstNumber:  job.FirstNumber,
		LastNumber:   job.LastNumber,
		PdfReady:     job.PdfObjectKey != "",
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
	}
	if len(job.Warnings) > 0 {
		v.Warnings = json.RawMessage(job.Warnings)
	}
	return v
}

// CreateJobs 处理"全部打印"：行数超过阈值且未确认时返回 409，否则每个批次创建一条任务并入队。
func (h *PrintHandler) CreateJobs(c *gin.Context) {
	var req printJobsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Template.Width <= 0 || req.Template.Height <= 0 {
		BadRequest(c, "template width and height must be positive")
		return
	}
	rows := req.dataSource()
	if rows.Len() == 0 {
		BadRequest(c, "no rows to print")
		return
	}

	gate := batch.RequestPrintAll(rows.Len(), h.cfg.WarnThreshold)
	if req.Confirmed {
		gate.Confirm()
	}
	size := req.BatchSize
	if size <= 0 {
		size = h.cfg.BatchSize
	}
	ranges, err := gate.Batches(size)
	if errors.Is(err, batch.ErrConfirmationRequired) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "confirmation_required",
			"code":      errcode.ConfirmationRequired,
			"total":     gate.Total,
			"threshold": gate.Threshold,
			"batches":   len(batch.PlanBatches(gate.Total, size)),
		})
		return
	}

	jobs, err := h.enqueueGroup(c, req, rows, ranges)
	if err != nil {
		middleware.LoggerFromContext(c).Error("create print jobs failed", slog.Any("error", err))
		Internal(c, "failed to create print jobs")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"group_id": jobs[0].GroupID, "jobs": jobs})
}

type printRecordRequest struct {
	Template label.Template      `json:"template"`
	Row      datasource.Row      `json:"row"`
	Session  binding.Session     `json:"session"`
	Schema   []label.SchemaField `json:"schema"`
}

// PrintRecord 打印单条记录，即大小为 1 的批次，不经过确认闸门。
func (h *PrintHandler) PrintRecord(c *gin.Context) {
	var req printRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Template.Width <= 0 || req.Template.Height <= 0 {
		BadRequest(c, "template width and height must be positive")
		return
	}

	group := printJobsRequest{Template: req.Template, Session: req.Session, Schema: req.Schema}
	rows := datasource.DataSource{Rows: []datasource.Row{req.Row}}
	jobs, err := h.enqueueGroup(c, group, rows, []batch.Range{{Start: 0, End: 1}})
	if err != nil {
		middleware.LoggerFromContext(c).Error("create print job failed", slog.Any("error", err))
		Internal(c, "failed to create print job")
		return
	}
	c.JSON(http.StatusAccepted, jobs[0])
}

// enqueueGroup 在一个事务中保存全部批次快照，然后依次入队；入队失败的批次标记为 failed。
func (h *PrintHandler) enqueueGroup(c *gin.Context, req printJobsRequest, rows datasource.DataSource, ranges []batch.Range) ([]jobView, error) {
	ctx := c.Request.Context()
	correlationID := middleware.GetCorrelationID(c)
	groupID := uuid.NewString()

	tplJSON, err := json.Marshal(req.Template)
	if err != nil {
		return nil, fmt.Errorf("marshal template: %w", err)
	}
	sessionJSON, err := json.Marshal(req.Session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	var schemaJSON datatypes.JSON
	if req.Schema != nil {
		if schemaJSON, err = json.Marshal(req.Schema); err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
	}

	jobs := make([]database.PrintJob, 0, len(ranges))
	for i, r := range ranges {
		slice, err := rows.Slice(r.Start, r.End)
		if err != nil {
			return nil, err
		}
		rowsJSON, err := json.Marshal(datasource.DataSource{Rows: slice})
		if err != nil {
			return nil, fmt.Errorf("marshal rows: %w", err)
		}
		jobs = append(jobs, database.PrintJob{
			JobID:         uuid.NewString(),
			GroupID:       groupID,
			CorrelationID: correlationID,
			TemplateID:    req.Template.ID,
			TemplateName:  req.Template.Name,
			Template:      tplJSON,
			Rows:          rowsJSON,
			Session:       sessionJSON,
			Schema:        schemaJSON,
			RangeStart:    r.Start,
			RangeEnd:      r.End,
			BatchIndex:    i,
			BatchCount:    len(ranges),
			Status:        database.JobStatusPending,
		})
	}

	if err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&jobs).Error
	}); err != nil {
		return nil, fmt.Errorf("create print jobs: %w", err)
	}

	views := make([]jobView, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		task, err := tasks.NewPrintBatchTask(job.JobID, correlationID)
		if err == nil {
			_, err = h.queue.EnqueueContext(ctx, task)
		}
		if err != nil {
			if uerr := h.db.WithContext(ctx).Model(&database.PrintJob{}).
				Where("group_id = ? AND batch_index >= ?", groupID, i).
				Updates(map[string]any{"status": database.JobStatusFailed, "error_message": "enqueue failed"}).Error; uerr != nil {
				middleware.LoggerFromContext(c).Error("mark unenqueued batches failed",
					slog.String("group_id", groupID),
					slog.Int("from_batch", i),
					slog.Any("error", uerr),
				)
			}
			return nil, fmt.Errorf("enqueue print batch %d: %w", i, err)
		}
		views = append(views, newJobView(*job))
	}
	return views, nil
}

func (h *PrintHandler) findJob(c *gin.Context) (database.PrintJob, bool) {
	var job database.PrintJob
	err := h.db.WithContext(c.Request.Context()).Where("job_id = ?", c.Param("id")).First(&job).Error
	switch {
	case err == nil:
		return job, true
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "print job not found")
	default:
		Internal(c, "failed to query print job")
	}
	return job, false
}

// GetJob 返回单个批次的状态。
func (h *PrintHandler) GetJob(c *gin.Context) {
	job, ok := h.findJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newJobView(job))
}

// GetGroup 返回一次"全部打印"的全部批次，按批次顺序排列。
func (h *PrintHandler) GetGroup(c *gin.Context) {
	var jobs []database.PrintJob
	if err := h.db.WithContext(c.Request.Context()).
		Where("group_id = ?", c.Param("id")).
		Order("batch_index ASC").
		Find(&jobs).Error; err != nil {
		Internal(c, "failed to query print jobs")
		return
	}
	if len(jobs) == 0 {
		NotFound(c, "print group not found")
		return
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, newJobView(job))
	}
	c.JSON(http.StatusOK, gin.H{"group_id": c.Param("id"), "jobs": views})
}

// GetDownloadLink 返回批次 PDF 的限时下载链接。
func (h *PrintHandler) GetDownloadLink(c *gin.Context) {
	job, ok := h.findJob(c)
	if !ok {
		return
	}
	if job.PdfObjectKey == "" {
		Conflict(c, errcode.ResourceMissing, "pdf not ready")
		return
	}

	ttl := h.cfg.DownloadLinkTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	params := map[string]string{
		"response-content-disposition": fmt.Sprintf("attachment; filename=%q", job.JobID+".pdf"),
	}
	signedURL, err := h.storage.GeneratePresignedURLWithParams(c.Request.Context(), job.PdfObjectKey, ttl, params)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate download link failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": signedURL, "expires_in": int(ttl.Seconds())})
}

// DeleteGroup 删除一次"全部打印"的 PDF 与任务记录；仍有批次排队或处理中时拒绝。
func (h *PrintHandler) DeleteGroup(c *gin.Context) {
	ctx := c.Request.Context()
	groupID := c.Param("id")

	var jobs []database.PrintJob
	if err := h.db.WithContext(ctx).Where("group_id = ?", groupID).Find(&jobs).Error; err != nil {
		Internal(c, "failed to query print jobs")
		return
	}
	if len(jobs) == 0 {
		NotFound(c, "print group not found")
		return
	}
	for _, job := range jobs {
		if job.Status == database.JobStatusPending || job.Status == database.JobStatusProcessing {
			Conflict(c, errcode.InvalidRequest, "print group still running")
			return
		}
	}

	log := middleware.LoggerFromContext(c).With(slog.String("group_id", groupID))
	if err := h.storage.DeletePrefix(ctx, worker.GroupObjectPrefix(groupID)); err != nil {
		log.Error("delete print group pdfs failed", slog.Any("error", err))
		Internal(c, "failed to delete print group files")
		return
	}
	if err := h.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&database.PrintJob{}).Error; err != nil {
		log.Error("delete print group jobs failed", slog.Any("error", err))
		Internal(c, "failed to delete print group")
		return
	}
	log.Info("print group deleted", slog.Int("jobs", len(jobs)))
	c.Status(http.StatusNoContent)
}
