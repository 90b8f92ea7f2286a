package handler

import (
	"net/http"

	"portal/internal/apperror"
	"portal/internal/middleware"
	"portal/internal/repository"
	"portal/internal/service"
	"portal/pkg/pagination"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError writes the error envelope for err. The full error is
// attached to the gin context so the request logger records it.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := apperror.HTTPStatus(err)
	c.JSON(status, response.Error(status, apperror.Message(err)))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// principal returns the caller set by the auth middleware. Routes that call
// it are always behind Auth.Required.
func principal(c *gin.Context) service.Principal {
	p, _ := middleware.CurrentPrincipal(c)
	return p
}

// listOptions reads page, limit, archived and order from the query string.
func listOptions(c *gin.Context) repository.ListOptions {
	params := pagination.Parse(c)
	return repository.ListOptions{
		Page:            params.Page,
		Limit:           params.Limit,
		IncludeArchived: params.Archived,
		OrderBy:         params.Order,
	}
}

// withFilters adds equality filters for the query parameters named in keys.
func withFilters(c *gin.Context, opts repository.ListOptions, keys ...string) repository.ListOptions {
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			if opts.Filters == nil {
				opts.Filters = map[string]interface{}{}
			}
			opts.Filters[k] = v
		}
	}
	return opts
}

func listResponse(key string, items interface{}, total int64, opts repository.ListOptions) map[string]interface{} {
	return response.Page(key, items, total, opts.Page, opts.Limit)
}
