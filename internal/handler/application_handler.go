package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/service"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
	"github.com/satriadp/supervision-api/pkg/response"
)

// ApplicationHandler exposes topic application endpoints.
type ApplicationHandler struct {
	service *service.ApplicationService
}

// NewApplicationHandler constructs an application handler.
func NewApplicationHandler(svc *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: svc}
}

// List godoc
// @Summary List applications
// @Description List topic applications with filters
// @Tags Applications
// @Produce json
// @Param topicId query string false "Filter by topic"
// @Param studentId query string false "Filter by student"
// @Param teacherId query string false "Filter by topic owner"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	var filter models.ApplicationFilter
	filter.TopicID = c.Query("topicId")
	filter.StudentID = c.Query("studentId")
	filter.TeacherID = c.Query("teacherId")
	if status := c.Query("status"); status != "" {
		filter.Status = models.ApplicationStatus(status)
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	actor, _ := actorFromContext(c)
	apps, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, pagination)
}

// Apply godoc
// @Summary Apply to topic
// @Description Student applies for a slot on an open topic
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body service.ApplyRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req service.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	app, err := h.service.Apply(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// Approve godoc
// @Summary Approve application
// @Description Approve a pending application and allocate the slot
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/approve [post]
func (h *ApplicationHandler) Approve(c *gin.Context) {
	actor, _ := actorFromContext(c)
	preThesis, err := h.service.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preThesis, nil)
}

// Reject godoc
// @Summary Reject application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 204 {object} response.Envelope
// @Router /applications/{id}/reject [post]
func (h *ApplicationHandler) Reject(c *gin.Context) {
	actor, _ := actorFromContext(c)
	if err := h.service.Reject(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
