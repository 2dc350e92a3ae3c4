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

// TopicHandler exposes pre-thesis topic endpoints.
type TopicHandler struct {
	service *service.TopicService
}

// NewTopicHandler constructs a topic handler.
func NewTopicHandler(svc *service.TopicService) *TopicHandler {
	return &TopicHandler{service: svc}
}

// List godoc
// @Summary List topics
// @Description List pre-thesis topics with filters
// @Tags Topics
// @Produce json
// @Param periodId query string false "Filter by period"
// @Param teacherId query string false "Filter by teacher"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /topics [get]
func (h *TopicHandler) List(c *gin.Context) {
	var filter models.TopicFilter
	filter.PeriodID = c.Query("periodId")
	filter.TeacherID = c.Query("teacherId")
	if status := c.Query("status"); status != "" {
		filter.Status = models.TopicStatus(status)
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	actor, _ := actorFromContext(c)
	topics, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topics, pagination)
}

// Get godoc
// @Summary Get topic
// @Tags Topics
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {object} response.Envelope
// @Router /topics/{id} [get]
func (h *TopicHandler) Get(c *gin.Context) {
	topic, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topic, nil)
}

// Create godoc
// @Summary Create topic
// @Description Publish a supervised topic with a slot budget
// @Tags Topics
// @Accept json
// @Produce json
// @Param payload body service.CreateTopicRequest true "Topic payload"
// @Success 201 {object} response.Envelope
// @Router /topics [post]
func (h *TopicHandler) Create(c *gin.Context) {
	var req service.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	topic, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, topic)
}

// Update godoc
// @Summary Update topic
// @Tags Topics
// @Accept json
// @Produce json
// @Param id path string true "Topic ID"
// @Param payload body service.UpdateTopicRequest true "Topic payload"
// @Success 200 {object} response.Envelope
// @Router /topics/{id} [put]
func (h *TopicHandler) Update(c *gin.Context) {
	var req service.UpdateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	topic, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topic, nil)
}

// Resize godoc
// @Summary Resize topic
// @Description Change a topic's slot budget without touching consumed slots
// @Tags Topics
// @Accept json
// @Produce json
// @Param id path string true "Topic ID"
// @Param payload body service.ResizeTopicRequest true "Resize payload"
// @Success 200 {object} response.Envelope
// @Router /topics/{id}/resize [post]
func (h *TopicHandler) Resize(c *gin.Context) {
	var req service.ResizeTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	topic, err := h.service.Resize(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topic, nil)
}
