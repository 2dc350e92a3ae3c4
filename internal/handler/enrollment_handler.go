package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/service"
	"github.com/satriadp/supervision-api/pkg/response"
)

// EnrollmentHandler exposes the per-period registration ledger.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// List godoc
// @Summary List enrollments
// @Description List registration records with filters
// @Tags Enrollments
// @Produce json
// @Param periodId query string false "Filter by period"
// @Param studentId query string false "Filter by student"
// @Param type query string false "Filter by type"
// @Param isRegistered query bool false "Filter by registered flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.PeriodID = c.Query("periodId")
	filter.StudentID = c.Query("studentId")
	if enrollmentType := c.Query("type"); enrollmentType != "" {
		filter.Type = models.EnrollmentType(enrollmentType)
	}
	if isRegistered := c.Query("isRegistered"); isRegistered != "" {
		if val, err := strconv.ParseBool(isRegistered); err == nil {
			filter.IsRegistered = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	actor, _ := actorFromContext(c)
	records, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Status godoc
// @Summary Registration status
// @Description One student's registration record for one period
// @Tags Enrollments
// @Produce json
// @Param studentId path string true "Student ID"
// @Param periodId path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{studentId}/{periodId} [get]
func (h *EnrollmentHandler) Status(c *gin.Context) {
	actor, _ := actorFromContext(c)
	record, err := h.service.Status(c.Request.Context(), actor, c.Param("studentId"), c.Param("periodId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
