package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 打印任务状态。
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// PrintJob 表示一个打印批次。"全部打印"按批次拆分为多条记录，共用 GroupID。
// 模板、数据行与会话以 JSONB 快照保存，worker 不依赖调用方后续的修改。
type PrintJob struct {
	gorm.Model
	JobID         string         `gorm:"uniqueIndex;size:36"`
	GroupID       string         `gorm:"index;size:36"`
	CorrelationID string         `gorm:"size:64"`
	TemplateID    string         `gorm:"size:64"`
	TemplateName  string         `gorm:"size:255"`
	Template      datatypes.JSON `gorm:"type:jsonb"`
	Rows          datatypes.JSON `gorm:"type:jsonb"`
	Session       datatypes.JSON `gorm:"type:jsonb"`
	Schema        datatypes.JSON `gorm:"type:jsonb"`
	RangeStart    int
	RangeEnd      int
	BatchIndex    int
	BatchCount    int
	Status        string `gorm:"size:32;index"`
	Outcome       string `gorm:"size:32"`
	PdfObjectKey  string `gorm:"size:512"`
	FirstNumber   int64
	LastNumber    int64
	Warnings      datatypes.JSON `gorm:"type:jsonb"`
	ErrorMessage  string         `gorm:"size:1024"`
	// PrintedResult 与 Document 保存已打印但尚未上传的批次，重试时直接上传，不再领取单号。
	PrintedResult datatypes.JSON `gorm:"type:jsonb"`
	Document      []byte
}

// SequenceRecord 是单号计数器在关系库中的副本（二级存储）。
type SequenceRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;size:64"`
	Value     int64
	UpdatedBy string `gorm:"size:128"`
	UpdatedAt time.Time
}
