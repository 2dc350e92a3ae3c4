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

// PeriodHandler exposes supervision period endpoints.
type PeriodHandler struct {
	service *service.PeriodService
}

// NewPeriodHandler constructs a period handler.
func NewPeriodHandler(svc *service.PeriodService) *PeriodHandler {
	return &PeriodHandler{service: svc}
}

// List godoc
// @Summary List periods
// @Description List supervision periods with filters
// @Tags Periods
// @Produce json
// @Param isActive query bool false "Filter by active flag"
// @Param isPublished query bool false "Filter by published flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /periods [get]
func (h *PeriodHandler) List(c *gin.Context) {
	var filter models.PeriodFilter
	if isActive := c.Query("isActive"); isActive != "" {
		if val, err := strconv.ParseBool(isActive); err == nil {
			filter.IsActive = &val
		}
	}
	if isPublished := c.Query("isPublished"); isPublished != "" {
		if val, err := strconv.ParseBool(isPublished); err == nil {
			filter.IsPublished = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	actor, _ := actorFromContext(c)
	periods, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, pagination)
}

// Get godoc
// @Summary Get period
// @Tags Periods
// @Produce json
// @Param id path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /periods/{id} [get]
func (h *PeriodHandler) Get(c *gin.Context) {
	period, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Active godoc
// @Summary Get active period
// @Tags Periods
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /periods/active [get]
func (h *PeriodHandler) Active(c *gin.Context) {
	period, err := h.service.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Create godoc
// @Summary Create period
// @Tags Periods
// @Accept json
// @Produce json
// @Param payload body service.CreatePeriodRequest true "Period payload"
// @Success 201 {object} response.Envelope
// @Router /periods [post]
func (h *PeriodHandler) Create(c *gin.Context) {
	var req service.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	period, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// Update godoc
// @Summary Update period
// @Tags Periods
// @Accept json
// @Produce json
// @Param id path string true "Period ID"
// @Param payload body service.UpdatePeriodRequest true "Period payload"
// @Success 200 {object} response.Envelope
// @Router /periods/{id} [put]
func (h *PeriodHandler) Update(c *gin.Context) {
	var req service.UpdatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	period, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// SetActive godoc
// @Summary Activate period
// @Description Make this period the single active one
// @Tags Periods
// @Produce json
// @Param id path string true "Period ID"
// @Success 204 {object} response.Envelope
// @Router /periods/{id}/activate [post]
func (h *PeriodHandler) SetActive(c *gin.Context) {
	actor, _ := actorFromContext(c)
	if err := h.service.SetActive(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetCurrent godoc
// @Summary Mark current period
// @Tags Periods
// @Produce json
// @Param id path string true "Period ID"
// @Success 204 {object} response.Envelope
// @Router /periods/{id}/set-current [post]
func (h *PeriodHandler) SetCurrent(c *gin.Context) {
	actor, _ := actorFromContext(c)
	if err := h.service.SetCurrent(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetPublished godoc
// @Summary Publish or unpublish period
// @Tags Periods
// @Accept json
// @Produce json
// @Param id path string true "Period ID"
// @Param payload body map[string]bool true "Published flag"
// @Success 204 {object} response.Envelope
// @Router /periods/{id}/publish [post]
func (h *PeriodHandler) SetPublished(c *gin.Context) {
	var payload struct {
		Published *bool `json:"published" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "published flag required"))
		return
	}
	actor, _ := actorFromContext(c)
	if err := h.service.SetPublished(c.Request.Context(), actor, c.Param("id"), *payload.Published); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
