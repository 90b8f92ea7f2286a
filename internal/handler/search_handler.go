package handler

import (
	"net/http"

	"portal/internal/middleware"
	"portal/internal/service"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	searchService service.SearchService
	auth          *middleware.Auth
}

func NewSearchHandler(searchService service.SearchService, auth *middleware.Auth) *SearchHandler {
	return &SearchHandler{searchService: searchService, auth: auth}
}

func (h *SearchHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/search", h.auth.Required(), h.Search)
}

// Search matches every term against the text fields of each record kind
// @Summary      Search
// @Tags         search
// @Security     BearerAuth
// @Produce      json
// @Param        q    query     string  true  "Space separated terms"
// @Success      200  {object}  response.Response{data=service.SearchResponse}
// @Router       /api/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	res, err := h.searchService.Search(c.Request.Context(), principal(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
