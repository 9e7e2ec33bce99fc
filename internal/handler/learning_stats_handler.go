package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/narin-dev/lms-analytics-api/internal/models"
	"github.com/narin-dev/lms-analytics-api/internal/service"
	appErrors "github.com/narin-dev/lms-analytics-api/pkg/errors"
	"github.com/narin-dev/lms-analytics-api/pkg/response"
)

type learningStatsProvider interface {
	Report(ctx context.Context) (*models.LearningStatsReport, bool, error)
	Refresh(ctx context.Context) (*models.LearningStatsReport, error)
}

type reportExporter interface {
	Render(report *models.LearningStatsReport, format string) (*service.ExportResult, error)
}

// LearningStatsHandler wires the learning-stats service to HTTP endpoints.
type LearningStatsHandler struct {
	stats    learningStatsProvider
	exporter reportExporter
}

// NewLearningStatsHandler constructs the handler.
func NewLearningStatsHandler(stats learningStatsProvider, exporter reportExporter) *LearningStatsHandler {
	return &LearningStatsHandler{stats: stats, exporter: exporter}
}

// Report godoc
// @Summary Learning statistics report
// @Tags LearningStats
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/learning-stats [get]
func (h *LearningStatsHandler) Report(c *gin.Context) {
	if h.stats == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	report, cacheHit, err := h.stats.Report(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{
		"cache_hit":          cacheHit,
		"processing_time_ms": time.Since(start).Milliseconds(),
	}
	response.JSON(c, http.StatusOK, report, meta)
}

// Refresh godoc
// @Summary Recompute the learning statistics report
// @Tags LearningStats
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/learning-stats/refresh [post]
func (h *LearningStatsHandler) Refresh(c *gin.Context) {
	if h.stats == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	report, err := h.stats.Refresh(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{
		"cache_hit":          false,
		"processing_time_ms": time.Since(start).Milliseconds(),
	}
	response.JSON(c, http.StatusOK, report, meta)
}

type exportQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=csv pdf"`
}

// Export godoc
// @Summary Download the learning statistics report
// @Tags LearningStats
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format" Enums(csv, pdf) default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /admin/learning-stats/export [get]
func (h *LearningStatsHandler) Export(c *gin.Context) {
	if h.stats == nil || h.exporter == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query exportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf"))
		return
	}
	if query.Format == "" {
		query.Format = service.ExportFormatCSV
	}

	report, _, err := h.stats.Report(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.Render(report, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
