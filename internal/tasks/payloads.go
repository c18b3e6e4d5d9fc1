package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"labelDesk/internal/binding"
	"labelDesk/internal/datasource"
	"labelDesk/internal/label"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePrintBatch   = "print:batch"
	TypeLabelPreview = "label:preview"
)

// 打印任务会领取单号，重试只在渲染或上传失败时有意义，次数保持很小。
const (
	printBatchMaxRetry = 2
	printBatchTimeout  = 5 * time.Minute
	previewTimeout     = time.Minute
)

// PrintBatchPayload 只携带任务 ID，模板与数据快照保存在 print_jobs 表中。
type PrintBatchPayload struct {
	JobID         string `json:"job_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewPrintBatchTask 构造一个批次打印任务。
func NewPrintBatchTask(jobID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PrintBatchPayload{
		JobID:         jobID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePrintBatch, payload,
		asynq.MaxRetry(printBatchMaxRetry),
		asynq.Timeout(printBatchTimeout),
	), nil
}

// LabelPreviewPayload 描述一次预览截图；模板较小，直接放进任务载荷。
type LabelPreviewPayload struct {
	PreviewID     string              `json:"preview_id"`
	CorrelationID string              `json:"correlation_id"`
	Template      label.Template      `json:"template"`
	Session       binding.Session     `json:"session"`
	Row           *datasource.Row     `json:"row,omitempty"`
	Schema        []label.SchemaField `json:"schema,omitempty"`
}

// NewLabelPreviewTask 构造预览任务，预览失败不重试。
func NewLabelPreviewTask(p LabelPreviewPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeLabelPreview, payload,
		asynq.MaxRetry(0),
		asynq.Timeout(previewTimeout),
	), nil
}
