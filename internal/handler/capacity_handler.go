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

// CapacityHandler exposes per-period capacity grant endpoints.
type CapacityHandler struct {
	service *service.CapacityService
}

// NewCapacityHandler constructs a capacity handler.
func NewCapacityHandler(svc *service.CapacityService) *CapacityHandler {
	return &CapacityHandler{service: svc}
}

// List godoc
// @Summary List capacity grants
// @Description List capacity grants with filters
// @Tags Capacities
// @Produce json
// @Param periodId query string false "Filter by period"
// @Param teacherId query string false "Filter by teacher"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /capacities [get]
func (h *CapacityHandler) List(c *gin.Context) {
	var filter models.CapacityFilter
	filter.PeriodID = c.Query("periodId")
	filter.TeacherID = c.Query("teacherId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	actor, _ := actorFromContext(c)
	grants, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grants, pagination)
}

// Get godoc
// @Summary Get capacity grant
// @Tags Capacities
// @Produce json
// @Param id path string true "Grant ID"
// @Success 200 {object} response.Envelope
// @Router /capacities/{id} [get]
func (h *CapacityHandler) Get(c *gin.Context) {
	actor, _ := actorFromContext(c)
	grant, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// Grant godoc
// @Summary Grant capacity
// @Description Give a teacher supervision slots for a period
// @Tags Capacities
// @Accept json
// @Produce json
// @Param payload body service.GrantCapacityRequest true "Grant payload"
// @Success 201 {object} response.Envelope
// @Router /capacities [post]
func (h *CapacityHandler) Grant(c *gin.Context) {
	var req service.GrantCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	grant, err := h.service.Grant(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grant)
}

// Resize godoc
// @Summary Resize capacity grant
// @Description Change a grant's totals; remaining slots shift by the same delta
// @Tags Capacities
// @Accept json
// @Produce json
// @Param id path string true "Grant ID"
// @Param payload body service.ResizeCapacityRequest true "Resize payload"
// @Success 200 {object} response.Envelope
// @Router /capacities/{id}/resize [post]
func (h *CapacityHandler) Resize(c *gin.Context) {
	var req service.ResizeCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	grant, err := h.service.Resize(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}
