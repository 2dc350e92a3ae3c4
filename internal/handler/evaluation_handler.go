package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/service"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
	"github.com/satriadp/supervision-api/pkg/response"
)

// EvaluationHandler exposes grading, defense scheduling and evaluation
// role management endpoints.
type EvaluationHandler struct {
	service *service.EvaluationService
}

// NewEvaluationHandler constructs an evaluation handler.
func NewEvaluationHandler(svc *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{service: svc}
}

// RecordGrade godoc
// @Summary Record grade
// @Description Record or overwrite the caller's grade on a case
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param kind path string true "Case track (pre-thesis or thesis)"
// @Param id path string true "Case ID"
// @Param payload body service.RecordGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /cases/{kind}/{id}/grades [post]
func (h *EvaluationHandler) RecordGrade(c *gin.Context) {
	caseKind, err := caseKindFromParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	req.CaseKind = caseKind
	req.CaseID = c.Param("id")

	actor, _ := actorFromContext(c)
	grade, err := h.service.RecordGrade(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// ListGrades godoc
// @Summary List grades
// @Description List evaluator grades recorded for one case
// @Tags Evaluations
// @Produce json
// @Param kind path string true "Case track (pre-thesis or thesis)"
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{kind}/{id}/grades [get]
func (h *EvaluationHandler) ListGrades(c *gin.Context) {
	caseKind, err := caseKindFromParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	grades, err := h.service.ListGrades(c.Request.Context(), caseKind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// SetFinalGrade godoc
// @Summary Set final grade
// @Description Record the externally decided final grade and close the case
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param kind path string true "Case track (pre-thesis or thesis)"
// @Param id path string true "Case ID"
// @Param payload body service.SetFinalGradeRequest true "Final grade payload"
// @Success 204 {object} response.Envelope
// @Router /cases/{kind}/{id}/final-grade [put]
func (h *EvaluationHandler) SetFinalGrade(c *gin.Context) {
	caseKind, err := caseKindFromParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.SetFinalGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	req.CaseKind = caseKind
	req.CaseID = c.Param("id")

	actor, _ := actorFromContext(c)
	if err := h.service.SetFinalGrade(c.Request.Context(), actor, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetDefenseDate godoc
// @Summary Schedule defense
// @Description Set the defense date on a thesis case
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Thesis ID"
// @Param payload body service.SetDefenseDateRequest true "Defense payload"
// @Success 204 {object} response.Envelope
// @Router /theses/{id}/defense [put]
func (h *EvaluationHandler) SetDefenseDate(c *gin.Context) {
	var req service.SetDefenseDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	if err := h.service.SetDefenseDate(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignReviewer godoc
// @Summary Assign reviewer
// @Description Replace the reviewer on a thesis; supervisors are excluded
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Thesis ID"
// @Param payload body service.AssignReviewerRequest true "Reviewer payload"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /theses/{id}/reviewer [put]
func (h *EvaluationHandler) AssignReviewer(c *gin.Context) {
	var req service.AssignReviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	if err := h.service.AssignReviewer(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignCommittee godoc
// @Summary Assign committee
// @Description Replace the defense committee set on a thesis
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Thesis ID"
// @Param payload body service.AssignCommitteeRequest true "Committee payload"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /theses/{id}/committee [put]
func (h *EvaluationHandler) AssignCommittee(c *gin.Context) {
	var req service.AssignCommitteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	actor, _ := actorFromContext(c)
	if err := h.service.AssignCommittee(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListRoles godoc
// @Summary List thesis roles
// @Description List supervisor, reviewer and committee assignments on a thesis
// @Tags Evaluations
// @Produce json
// @Param id path string true "Thesis ID"
// @Success 200 {object} response.Envelope
// @Router /theses/{id}/roles [get]
func (h *EvaluationHandler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}
