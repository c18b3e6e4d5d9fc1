package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"labelDesk/internal/api/middleware"
	"labelDesk/internal/errcode"
	"labelDesk/internal/sequence"
)

// SequenceService 是单号计数器的接口，*sequence.Service 满足它。
type SequenceService interface {
	State(ctx context.Context) (sequence.State, error)
	Next(ctx context.Context) (int64, error)
	SetStart(ctx context.Context, n int64) error
	Reset(ctx context.Context, n int64) error
}

// SequenceHandler 暴露 CIPL 单号的查询、领取与管理。
type SequenceHandler struct {
	service SequenceService
}

func NewSequenceHandler(service SequenceService) *SequenceHandler {
	return &SequenceHandler{service: service}
}

// Get 返回当前值与下一次领取将得到的值，不消耗单号。
func (h *SequenceHandler) Get(c *gin.Context) {
	st, err := h.service.State(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"current":    st.Value,
		"next":       st.Value + 1,
		"updated_at": st.UpdatedAt,
		"updated_by": st.UpdatedBy,
	})
}

// Next 领取一个单号。
func (h *SequenceHandler) Next(c *gin.Context) {
	ctx := sequence.WithActor(c.Request.Context(), actorOf(c, ""))
	n, err := h.service.Next(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": n})
}

type sequenceValueRequest struct {
	Value *int64 `json:"value"`
	Actor string `json:"actor"`
}

// defaultResetValue 是重置请求未给出 value 时使用的值。
const defaultResetValue int64 = 1

// SetStart 设置下一次领取的值，只能向前调整。
func (h *SequenceHandler) SetStart(c *gin.Context) {
	h.admin(c, "set_start", nil, h.service.SetStart)
}

// Reset 无条件重置下一次领取的值，未给出 value 时重置为 1。
func (h *SequenceHandler) Reset(c *gin.Context) {
	fallback := defaultResetValue
	h.admin(c, "reset", &fallback, h.service.Reset)
}

func (h *SequenceHandler) admin(c *gin.Context, op string, fallback *int64, apply func(context.Context, int64) error) {
	var req sequenceValueRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	value := req.Value
	if value == nil {
		value = fallback
	}
	if value == nil {
		BadRequest(c, "value is required")
		return
	}

	actor := actorOf(c, req.Actor)
	ctx := sequence.WithActor(c.Request.Context(), actor)
	if err := apply(ctx, *value); err != nil {
		h.writeError(c, err)
		return
	}
	middleware.LoggerFromContext(c).Warn("sequence changed by admin",
		slog.String("op", op),
		slog.Int64("next", *value),
		slog.String("actor", actor),
	)
	c.JSON(http.StatusOK, gin.H{"next": *value})
}

func (h *SequenceHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sequence.ErrInvalidSequenceValue):
		Error(c, http.StatusBadRequest, errcode.InvalidSequenceValue, err.Error())
	case errors.Is(err, sequence.ErrAllTiersUnavailable):
		middleware.LoggerFromContext(c).Error("sequence storage unavailable", slog.Any("error", err))
		ServiceUnavailable(c, "sequence storage unavailable")
	default:
		middleware.LoggerFromContext(c).Error("sequence operation failed", slog.Any("error", err))
		Internal(c, "sequence operation failed")
	}
}

// actorOf 优先使用请求体中的操作人，其次是 X-Operator 头。
func actorOf(c *gin.Context, explicit string) string {
	if actor := strings.TrimSpace(explicit); actor != "" {
		return actor
	}
	return strings.TrimSpace(c.GetHeader("X-Operator"))
}
