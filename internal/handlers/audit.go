package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentselect/internal/logger"
	"github.com/yungbote/contentselect/internal/repos"
)

// AuditHandler serves the persisted decision trail for inspection.
// Only wired when an audit database is configured.
type AuditHandler struct {
	log  *logger.Logger
	repo repos.AuditRepo
}

func NewAuditHandler(log *logger.Logger, repo repos.AuditRepo) *AuditHandler {
	return &AuditHandler{
		log:  log.With("handler", "AuditHandler"),
		repo: repo,
	}
}

// GET /api/users/:user_id/slates
func (h *AuditHandler) GetSlates(c *gin.Context) {
	userID := c.Param("user_id")
	slates, err := h.repo.GetSlatesByUserID(c.Request.Context(), nil, userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "query_failed", err)
		return
	}
	RespondOK(c, gin.H{"slates": slates})
}

// GET /api/users/:user_id/updates
func (h *AuditHandler) GetUpdates(c *gin.Context) {
	userID := c.Param("user_id")
	updates, err := h.repo.GetUpdatesByUserID(c.Request.Context(), nil, userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "query_failed", err)
		return
	}
	RespondOK(c, gin.H{"updates": updates})
}
