package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/service"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
	"github.com/satriadp/supervision-api/pkg/response"
)

// DeadlineHandler exposes per-period deadline configuration.
type DeadlineHandler struct {
	service *service.DeadlineService
}

// NewDeadlineHandler constructs a deadline handler.
func NewDeadlineHandler(svc *service.DeadlineService) *DeadlineHandler {
	return &DeadlineHandler{service: svc}
}

// List godoc
// @Summary List deadlines
// @Description List a period's configured cutoffs
// @Tags Deadlines
// @Produce json
// @Param id path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /periods/{id}/deadlines [get]
func (h *DeadlineHandler) List(c *gin.Context) {
	deadlines, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deadlines, nil)
}

// Set godoc
// @Summary Set deadline
// @Description Create or replace the cutoff for one artifact in a period
// @Tags Deadlines
// @Accept json
// @Produce json
// @Param id path string true "Period ID"
// @Param payload body service.SetDeadlineRequest true "Deadline payload"
// @Success 200 {object} response.Envelope
// @Router /periods/{id}/deadlines [put]
func (h *DeadlineHandler) Set(c *gin.Context) {
	var req service.SetDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	req.PeriodID = c.Param("id")

	actor, _ := actorFromContext(c)
	deadline, err := h.service.Set(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deadline, nil)
}

// Remove godoc
// @Summary Remove deadline
// @Description Drop the cutoff for one artifact; the window reopens
// @Tags Deadlines
// @Produce json
// @Param id path string true "Period ID"
// @Param artifact path string true "Artifact key"
// @Success 204 {object} response.Envelope
// @Router /periods/{id}/deadlines/{artifact} [delete]
func (h *DeadlineHandler) Remove(c *gin.Context) {
	actor, _ := actorFromContext(c)
	artifact := models.ArtifactKind(c.Param("artifact"))
	if err := h.service.Remove(c.Request.Context(), actor, c.Param("id"), artifact); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
