package handler

import (
	"net/http"

	"portal/internal/middleware"
	"portal/internal/service"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type TimeEntryHandler struct {
	entryService service.TimeEntryService
	auth         *middleware.Auth
}

func NewTimeEntryHandler(entryService service.TimeEntryService, auth *middleware.Auth) *TimeEntryHandler {
	return &TimeEntryHandler{entryService: entryService, auth: auth}
}

func (h *TimeEntryHandler) RegisterRoutes(router *gin.RouterGroup) {
	entries := router.Group("/api/time-entries", h.auth.Required())
	{
		entries.GET("", h.ListTimeEntries)
		entries.POST("", h.CreateTimeEntry)
		entries.GET("/:id", h.GetTimeEntry)
		entries.PUT("/:id", h.UpdateTimeEntry)
		entries.DELETE("/:id", h.DeleteTimeEntry)
	}
}

// CreateTimeEntry logs hours
// @Summary      Create time entry
// @Description  Logs hours. The task falls back to the project, profile or global default; the entry is priced and its invoice recomputed.
// @Tags         time-entries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTimeEntryRequest  true  "Time entry"
// @Success      201      {object}  response.Response{data=service.TimeEntryResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/time-entries [post]
func (h *TimeEntryHandler) CreateTimeEntry(c *gin.Context) {
	var req service.CreateTimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.entryService.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entry))
}

// ListTimeEntries returns the caller's entries (all entries for a superuser)
// @Summary      List time entries
// @Tags         time-entries
// @Security     BearerAuth
// @Produce      json
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 10)"
// @Param        archived    query     bool    false  "Include archived entries"
// @Param        order       query     string  false  "Comma separated fields, '-' for descending"
// @Param        invoice_id  query     string  false  "Filter by invoice"
// @Param        project_id  query     string  false  "Filter by project"
// @Success      200         {object}  response.Response{data=object}
// @Router       /api/time-entries [get]
func (h *TimeEntryHandler) ListTimeEntries(c *gin.Context) {
	opts := withFilters(c, listOptions(c), "invoice_id", "project_id", "task_id", "client_id")
	entries, total, err := h.entryService.List(c.Request.Context(), principal(c), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listResponse("time_entries", entries, total, opts)))
}

// GetTimeEntry returns one entry
// @Summary      Get time entry
// @Tags         time-entries
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Time entry ID"
// @Success      200  {object}  response.Response{data=service.TimeEntryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/time-entries/{id} [get]
func (h *TimeEntryHandler) GetTimeEntry(c *gin.Context) {
	entry, err := h.entryService.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// UpdateTimeEntry changes an entry
// @Summary      Update time entry
// @Description  The owner is preserved unless user_id is sent. The current and previous invoices are recomputed.
// @Tags         time-entries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Time entry ID"
// @Param        payload  body      service.UpdateTimeEntryRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.TimeEntryResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/time-entries/{id} [put]
func (h *TimeEntryHandler) UpdateTimeEntry(c *gin.Context) {
	var req service.UpdateTimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.entryService.Update(c.Request.Context(), principal(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// DeleteTimeEntry removes an entry
// @Summary      Delete time entry
// @Tags         time-entries
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Time entry ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/time-entries/{id} [delete]
func (h *TimeEntryHandler) DeleteTimeEntry(c *gin.Context) {
	if err := h.entryService.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Time entry deleted successfully"))
}
