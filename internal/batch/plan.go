// Package batch 将数据源切分为安全大小的打印批次，并驱动每个批次的打印周期。
package batch

import (
	"errors"
	"fmt"
)

const (
	// DefaultBatchSize 单个打印周期渲染的最大行数。
	DefaultBatchSize = 50
	// DefaultWarnThreshold 超过此行数的"全部打印"需要二次确认。
	DefaultWarnThreshold = 100
)

var (
	ErrConfirmationRequired = errors.New("print all requires confirmation")
	ErrInvalidRange         = errors.New("invalid row range")
)

// Range is a half-open row range [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of rows in r.
func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) validate(total int) error {
	if r.Start < 0 || r.End > total || r.Start >= r.End {
		return fmt.Errorf("%w: [%d, %d) of %d rows", ErrInvalidRange, r.Start, r.End, total)
	}
	return nil
}

// PlanBatches 将 [0, n) 切分为升序、连续、互不重叠且长度不超过 size 的区间，最后一个区间可能较短。
// size 非正时使用 DefaultBatchSize；n 非正时返回空。
func PlanBatches(n, size int) []Range {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	ranges := make([]Range, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		ranges = append(ranges, Range{Start: start, End: min(start+size, n)})
	}
	return ranges
}

// PrintAllRequest 是"全部打印"的两步确认闸门：行数超过阈值时，在 Confirm 之前不会给出批次。
type PrintAllRequest struct {
	Total     int
	Threshold int
	confirmed bool
}

// RequestPrintAll starts a print-all request for n rows. A non-positive threshold uses DefaultWarnThreshold.
func RequestPrintAll(n, threshold int) *PrintAllRequest {
	if threshold <= 0 {
		threshold = DefaultWarnThreshold
	}
	return &PrintAllRequest{Total: n, Threshold: threshold}
}

// NeedsConfirmation reports whether the row count exceeds the threshold.
func (p *PrintAllRequest) NeedsConfirmation() bool {
	return p.Total > p.Threshold
}

// Confirm records the operator's explicit confirmation.
func (p *PrintAllRequest) Confirm() {
	p.confirmed = true
}

// Ready reports whether printing may proceed.
func (p *PrintAllRequest) Ready() bool {
	return !p.NeedsConfirmation() || p.confirmed
}

// Batches returns the planned batches, or ErrConfirmationRequired while the gate is closed.
func (p *PrintAllRequest) Batches(size int) ([]Range, error) {
	if !p.Ready() {
		return nil, fmt.Errorf("%w: %d rows exceed the threshold of %d", ErrConfirmationRequired, p.Total, p.Threshold)
	}
	return PlanBatches(p.Total, size), nil
}
