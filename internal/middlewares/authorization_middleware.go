package middlewares

import (
	"net/http"

	"pixelforge/internal/policy"
	"pixelforge/internal/responses"

	"github.com/gin-gonic/gin"
)

// Authorize rejects callers whose role can never perform action, before any store access.
// Ownership is decided later by the service with the loaded project.
// This middleware should be used after Authenticate middleware
func Authorize(action policy.Action, recorder DenialRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			responses.Abort(c, http.StatusUnauthorized, "Unauthorized - No token provided")
			return
		}

		if !policy.CouldEver(action, caller.Role) {
			if recorder != nil {
				recorder.RecordPolicyDenial(action.String())
			}
			responses.Abort(c, http.StatusForbidden, "Forbidden - Insufficient permissions")
			return
		}

		c.Next()
	}
}

// DenialRecorder counts refused actions.
type DenialRecorder interface {
	RecordPolicyDenial(action string)
}
