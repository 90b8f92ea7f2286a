package middleware

import (
	"context"
	"net/http"
	"strings"

	"portal/internal/apperror"
	"portal/internal/service"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	principalKey = "principal"
)

// Authenticator resolves a bearer token to the caller.
type Authenticator interface {
	ParseAccessToken(token string) (uuid.UUID, error)
	PrincipalFor(ctx context.Context, userID uuid.UUID) (service.Principal, error)
}

// Auth holds the token resolver and the cookie policy.
type Auth struct {
	authenticator Authenticator
	// secureCookies selects SameSite=None + Secure for cross-origin
	// deployments; otherwise SameSite=Lax without Secure.
	secureCookies bool
}

func NewAuth(authenticator Authenticator, secureCookies bool) *Auth {
	return &Auth{authenticator: authenticator, secureCookies: secureCookies}
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (a *Auth) SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	a.setCookies(c, accessToken, refreshToken, int(service.AccessTokenTTL.Seconds()), int(service.RefreshTokenTTL.Seconds()))
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (a *Auth) ClearTokenCookies(c *gin.Context) {
	a.setCookies(c, "", "", -1, -1)
}

func (a *Auth) setCookies(c *gin.Context, access, refresh string, accessAge, refreshAge int) {
	sameSite := http.SameSiteLaxMode
	if a.secureCookies {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, access, accessAge, "/", "", a.secureCookies, true)
	c.SetCookie(RefreshTokenCookie, refresh, refreshAge, "/", "", a.secureCookies, true)
}

// Required validates the JWT from the access_token cookie or the
// Authorization header and stores the caller's Principal on the context.
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(AccessTokenCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		userID, err := a.authenticator.ParseAccessToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		principal, err := a.authenticator.PrincipalFor(c.Request.Context(), userID)
		if err != nil {
			status := http.StatusUnauthorized
			if apperror.KindOf(err) == apperror.KindStorage {
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, response.Error(status, apperror.Message(err)))
			return
		}

		c.Set("userID", principal.ID.String())
		c.Set(principalKey, principal)
		c.Request = c.Request.WithContext(service.WithPrincipal(c.Request.Context(), principal))

		c.Next()
	}
}

// RequireSuperuser must run after Required.
func (a *Auth) RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}
		if !p.IsSuperuser {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: superuser required"))
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the caller stored by Required.
func CurrentPrincipal(c *gin.Context) (service.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return service.Principal{}, false
	}
	p, ok := v.(service.Principal)
	return p, ok
}
