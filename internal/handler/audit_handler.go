package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/repository"
	"github.com/satriadp/supervision-api/pkg/response"
)

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	repo *repository.AuditRepository
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(repo *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

// ListRecent godoc
// @Summary List audit entries
// @Description Newest audit rows for one resource
// @Tags Audit
// @Produce json
// @Param resource query string true "Resource name"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.repo.ListRecent(c.Request.Context(), c.Query("resource"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
