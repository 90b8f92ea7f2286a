package handler

import (
	"net/http"

	"portal/internal/middleware"
	"portal/internal/service"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
	auth          *middleware.Auth
}

func NewReportHandler(reportService service.ReportService, auth *middleware.Auth) *ReportHandler {
	return &ReportHandler{reportService: reportService, auth: auth}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports", h.auth.Required())
	{
		reports.GET("", h.ListReports)
		reports.GET("/:id", h.GetReport)
		reports.POST("", h.auth.RequireSuperuser(), h.CreateReport)
		reports.POST("/:id/build", h.auth.RequireSuperuser(), h.BuildReport)
		reports.DELETE("/:id", h.auth.RequireSuperuser(), h.DeleteReport)
	}
}

// CreateReport creates and builds a report
// @Summary      Create report
// @Description  Rolls up the given invoices, or every live invoice when none are given
// @Tags         reports
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateReportRequest  true  "Report"
// @Success      201      {object}  response.Response{data=service.ReportResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/reports [post]
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req service.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	report, err := h.reportService.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, report))
}

// BuildReport recomputes a report from its invoices
// @Summary      Build report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  response.Response{data=service.ReportResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/reports/{id}/build [post]
func (h *ReportHandler) BuildReport(c *gin.Context) {
	report, err := h.reportService.Build(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// ListReports returns a paginated list of reports
// @Summary      List reports
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 10)"
// @Param        archived  query     bool    false  "Include archived reports"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/reports [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	opts := listOptions(c)
	reports, total, err := h.reportService.List(c.Request.Context(), principal(c), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listResponse("reports", reports, total, opts)))
}

// GetReport returns one report
// @Summary      Get report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  response.Response{data=service.ReportResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/reports/{id} [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	report, err := h.reportService.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// DeleteReport removes a report
// @Summary      Delete report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/reports/{id} [delete]
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	if err := h.reportService.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Report deleted successfully"))
}
