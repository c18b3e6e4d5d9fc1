package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskResult(t *testing.T) {
	assert.Equal(t, "ok", TaskResult(nil))
	assert.Equal(t, "retry", TaskResult(errors.New("boom")))
	assert.Equal(t, "skipped", TaskResult(fmt.Errorf("bad payload: %w", asynq.SkipRetry)))
}

func TestAsynqMetricsMiddlewarePassesResultThrough(t *testing.T) {
	want := errors.New("host print failed")
	handler := AsynqMetricsMiddleware()(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		assert.Equal(t, 1.0, testutil.ToFloat64(tasksInProgress.WithLabelValues("test:metrics")))
		return want
	}))

	err := handler.ProcessTask(context.Background(), asynq.NewTask("test:metrics", nil))
	require.ErrorIs(t, err, want)
	assert.Equal(t, 0.0, testutil.ToFloat64(tasksInProgress.WithLabelValues("test:metrics")))
}

func TestObservePrintCycle(t *testing.T) {
	before := testutil.ToFloat64(labelsPrintedTotal.WithLabelValues("test_outcome"))
	ObservePrintCycle("test_outcome", 3)
	ObservePrintCycle("test_outcome", 2)

	assert.Equal(t, before+5, testutil.ToFloat64(labelsPrintedTotal.WithLabelValues("test_outcome")))
	assert.Equal(t, 2.0, testutil.ToFloat64(printCyclesTotal.WithLabelValues("test_outcome")))
}

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/v1/print/jobs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/print/jobs/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope/1", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 2, testutil.CollectAndCount(requestDuration))
	assert.True(t, requestDuration.DeleteLabelValues(http.MethodGet, "/v1/print/jobs/:id", "200"))
	assert.True(t, requestDuration.DeleteLabelValues(http.MethodGet, unmatchedRoute, "404"))
}
