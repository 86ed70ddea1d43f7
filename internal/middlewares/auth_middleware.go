package middlewares

import (
	"context"
	"net/http"
	"strings"

	"pixelforge/internal/models"
	"pixelforge/internal/policy"
	"pixelforge/internal/responses"
	"pixelforge/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	callerKey = "caller"
	claimsKey = "claims"
)

// Authenticator turns a bearer token into the caller it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (policy.Caller, *utils.Claims, error)
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and stores the
// resulting Caller in the context for handlers.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		// Expected format: "Bearer <token>"
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		tokenStr = strings.TrimSpace(tokenStr)
		if !ok || tokenStr == "" {
			responses.Abort(c, http.StatusUnauthorized, "Unauthorized - No token provided")
			return
		}

		caller, claims, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			if appErr, ok := models.AsAppError(err); ok {
				responses.Abort(c, http.StatusUnauthorized, appErr.Message)
				return
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(callerKey, caller)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// CallerFromContext returns the Caller stored by Authenticate.
func CallerFromContext(c *gin.Context) (policy.Caller, bool) {
	v, exists := c.Get(callerKey)
	if !exists {
		return policy.Caller{}, false
	}
	caller, ok := v.(policy.Caller)
	return caller, ok
}

// ClaimsFromContext returns the verified token claims stored by Authenticate.
func ClaimsFromContext(c *gin.Context) (*utils.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*utils.Claims)
	return claims, ok
}
