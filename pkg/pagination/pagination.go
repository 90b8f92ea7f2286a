// Package pagination reads the listing parameters shared by every list
// endpoint: page, limit, archived and order.
package pagination

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds validated listing parameters.
type Params struct {
	Page  int
	Limit int
	// Archived asks for archived rows as well as live ones.
	Archived bool
	// Order lists field names, "-" prefixed for descending. Callers check
	// them against the columns they know.
	Order []string
}

// Parse reads page, limit, archived and order from the query string.
// Malformed or out of range page and limit fall back to the defaults; limit
// is capped at MaxLimit.
func Parse(c *gin.Context) Params {
	p := Params{
		Page:     atoiOr(c.Query("page"), DefaultPage),
		Limit:    atoiOr(c.Query("limit"), DefaultLimit),
		Archived: c.Query("archived") == "true",
	}
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	for _, f := range strings.Split(c.Query("order"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			p.Order = append(p.Order, f)
		}
	}
	return p
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
