package handler

import (
	"net/http"

	"portal/internal/middleware"
	"portal/internal/service"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Auth
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Auth) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.auth.Required(), h.auth.RequireSuperuser()) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns billing mutations, newest first
// @Summary      Get audit logs
// @Description  Lists time entry, invoice and report mutations with the acting user
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 10)"
// @Param        entity_kind  query     string  false  "time_entry, invoice or report"
// @Param        entity_id    query     string  false  "Only mutations of this record"
// @Param        action       query     string  false  "CREATE, UPDATE or DELETE"
// @Success      200          {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	opts := withFilters(c, listOptions(c), "entity_kind", "entity_id", "action", "user_id")

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), principal(c), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listResponse("logs", logs, total, opts)))
}
