package middlewares

import (
	"log/slog"
	"net/http"

	"pixelforge/internal/models"
	"pixelforge/internal/responses"

	"github.com/gin-gonic/gin"
)

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation, models.KindInvalidState:
		return http.StatusBadRequest
	case models.KindAuthentication:
		return http.StatusUnauthorized
	case models.KindForbidden:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ErrorHandler writes the response for the last error a handler attached with c.Error.
// Domain errors keep their message; anything else is logged and reported as a 500 whose
// detail is only exposed in development.
func ErrorHandler(development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if appErr, ok := models.AsAppError(err); ok {
			var detail error
			if development && appErr.Err != nil {
				detail = appErr.Err
			}
			responses.Fail(c, StatusFor(appErr.Kind), detail, appErr.Message)
			return
		}

		slog.ErrorContext(c.Request.Context(), "request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err),
		)
		var detail error
		if development {
			detail = err
		}
		responses.Fail(c, http.StatusInternalServerError, detail, "Internal Server Error")
	}
}
