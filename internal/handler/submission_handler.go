package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/service"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
	"github.com/satriadp/supervision-api/pkg/response"
)

// SubmissionHandler exposes the append-only milestone submission endpoints.
type SubmissionHandler struct {
	service *service.SubmissionService
}

// NewSubmissionHandler constructs a submission handler.
func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Submit godoc
// @Summary Submit artifact
// @Description Append one milestone artifact to a case before its deadline
// @Tags Submissions
// @Accept json
// @Produce json
// @Param kind path string true "Case track (pre-thesis or thesis)"
// @Param id path string true "Case ID"
// @Param payload body service.SubmitRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /cases/{kind}/{id}/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	caseKind, err := caseKindFromParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	req.CaseKind = caseKind
	req.CaseID = c.Param("id")

	actor, _ := actorFromContext(c)
	submission, err := h.service.Submit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// Latest godoc
// @Summary Latest submissions
// @Description Newest submission per artifact type for one case
// @Tags Submissions
// @Produce json
// @Param kind path string true "Case track (pre-thesis or thesis)"
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{kind}/{id}/submissions [get]
func (h *SubmissionHandler) Latest(c *gin.Context) {
	caseKind, err := caseKindFromParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor, _ := actorFromContext(c)
	submissions, err := h.service.Latest(c.Request.Context(), actor, caseKind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// History godoc
// @Summary Submission history
// @Description Full submission log for one case, newest first
// @Tags Submissions
// @Produce json
// @Param kind path string true "Case track (pre-thesis or thesis)"
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{kind}/{id}/submissions/history [get]
func (h *SubmissionHandler) History(c *gin.Context) {
	caseKind, err := caseKindFromParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor, _ := actorFromContext(c)
	submissions, err := h.service.History(c.Request.Context(), actor, caseKind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// SetVideoURL godoc
// @Summary Attach recording link
// @Description Set the presentation recording URL on a case
// @Tags Submissions
// @Accept json
// @Produce json
// @Param kind path string true "Case track (pre-thesis or thesis)"
// @Param id path string true "Case ID"
// @Param payload body service.SetVideoURLRequest true "Video payload"
// @Success 204 {object} response.Envelope
// @Router /cases/{kind}/{id}/video [put]
func (h *SubmissionHandler) SetVideoURL(c *gin.Context) {
	caseKind, err := caseKindFromParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.SetVideoURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	req.CaseKind = caseKind
	req.CaseID = c.Param("id")

	actor, _ := actorFromContext(c)
	if err := h.service.SetVideoURL(c.Request.Context(), actor, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
