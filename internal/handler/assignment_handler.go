package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/service"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
	"github.com/satriadp/supervision-api/pkg/response"
)

// AssignmentHandler exposes operator-driven allocation endpoints.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// AssignDirected godoc
// @Summary Directed assignment
// @Description Pin one student to a topic (pre-thesis) or a teacher (thesis)
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.DirectedAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/directed [post]
func (h *AssignmentHandler) AssignDirected(c *gin.Context) {
	var req service.DirectedAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	pairing, err := h.service.AssignDirected(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pairing)
}

// AssignRandom godoc
// @Summary Random batch assignment
// @Description Spread a batch of students over remaining capacity; all or nothing
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.RandomAssignmentRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/random [post]
func (h *AssignmentHandler) AssignRandom(c *gin.Context) {
	var req service.RandomAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	pairings, err := h.service.AssignRandom(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pairings)
}
