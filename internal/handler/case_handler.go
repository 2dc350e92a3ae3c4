package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/service"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
	"github.com/satriadp/supervision-api/pkg/response"
)

// CaseHandler exposes read and export endpoints over accepted cases.
type CaseHandler struct {
	cases   *service.CaseService
	exports *service.ExportService
}

// NewCaseHandler constructs a case handler.
func NewCaseHandler(cases *service.CaseService, exports *service.ExportService) *CaseHandler {
	return &CaseHandler{cases: cases, exports: exports}
}

// caseKindFromParam maps the :kind path segment onto the case track.
func caseKindFromParam(c *gin.Context) (models.CaseKind, error) {
	switch c.Param("kind") {
	case "pre-thesis", string(models.CaseKindPreThesis):
		return models.CaseKindPreThesis, nil
	case "thesis", string(models.CaseKindThesis):
		return models.CaseKindThesis, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown case kind %q", c.Param("kind")))
	}
}

func caseFilterFromQuery(c *gin.Context) models.CaseFilter {
	var filter models.CaseFilter
	filter.PeriodID = c.Query("periodId")
	filter.StudentID = c.Query("studentId")
	filter.TeacherID = c.Query("teacherId")
	if status := c.Query("status"); status != "" {
		filter.Status = models.CaseStatus(status)
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter
}

// List godoc
// @Summary List cases
// @Description List cases on one track with filters
// @Tags Cases
// @Produce json
// @Param kind path string true "Case track (pre-thesis or thesis)"
// @Param periodId query string false "Filter by period"
// @Param studentId query string false "Filter by student"
// @Param teacherId query string false "Filter by supervisor"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cases/{kind} [get]
func (h *CaseHandler) List(c *gin.Context) {
	kind, err := caseKindFromParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor, _ := actorFromContext(c)
	filter := caseFilterFromQuery(c)

	if kind == models.CaseKindThesis {
		cases, pagination, err := h.cases.ListThesis(c.Request.Context(), actor, filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, cases, pagination)
		return
	}

	cases, pagination, err := h.cases.ListPreThesis(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cases, pagination)
}

// Get godoc
// @Summary Get case
// @Tags Cases
// @Produce json
// @Param kind path string true "Case track (pre-thesis or thesis)"
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{kind}/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	kind, err := caseKindFromParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor, _ := actorFromContext(c)

	if kind == models.CaseKindThesis {
		thesis, err := h.cases.GetThesis(c.Request.Context(), actor, c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, thesis, nil)
		return
	}

	preThesis, err := h.cases.GetPreThesis(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preThesis, nil)
}

// ExportCSV godoc
// @Summary Export case grades as CSV
// @Tags Cases
// @Produce text/csv
// @Param kind path string true "Case track (pre-thesis or thesis)"
// @Param id path string true "Case ID"
// @Success 200 {file} file
// @Router /cases/{kind}/{id}/export/csv [get]
func (h *CaseHandler) ExportCSV(c *gin.Context) {
	kind, err := caseKindFromParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor, _ := actorFromContext(c)
	payload, filename, err := h.exports.RenderCSV(c.Request.Context(), actor, kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export case report as PDF
// @Tags Cases
// @Produce application/pdf
// @Param kind path string true "Case track (pre-thesis or thesis)"
// @Param id path string true "Case ID"
// @Success 200 {file} file
// @Router /cases/{kind}/{id}/export/pdf [get]
func (h *CaseHandler) ExportPDF(c *gin.Context) {
	kind, err := caseKindFromParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor, _ := actorFromContext(c)
	payload, filename, err := h.exports.RenderPDF(c.Request.Context(), actor, kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "application/pdf", payload)
}
