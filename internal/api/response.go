package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"labelDesk/internal/errcode"
)

// Error 写出统一的错误体：{"error": msg, "code": 业务错误码}。
func Error(c *gin.Context, status int, code int, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, errcode.InvalidRequest, msg)
}
func NotFound(c *gin.Context, msg string) { Error(c, http.StatusNotFound, errcode.ResourceMissing, msg) }
func Conflict(c *gin.Context, code int, msg string) {
	Error(c, http.StatusConflict, code, msg)
}
func Internal(c *gin.Context, msg string) { Error(c, http.StatusInternalServerError, errcode.SystemError, msg) }
func ServiceUnavailable(c *gin.Context, msg string) {
	Error(c, http.StatusServiceUnavailable, errcode.SystemError, msg)
}
