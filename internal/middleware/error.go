package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/handler"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// ErrorHandler renders the last error pushed with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only handle errors if they exist
		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		lastErr := c.Errors.Last()

		appErr, ok := apperrors.As(lastErr.Err)
		if !ok {
			appErr = apperrors.Internal(lastErr.Err)
		}
		status := appErr.StatusCode()

		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Err(lastErr.Err).
			Str("request_id", requestID).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Int("status", status).
			Msg("Request error")

		if c.Writer.Written() {
			return
		}

		body := handler.NewAppErrorResponse(appErr)
		if status >= http.StatusInternalServerError {
			body = handler.NewErrorResponse("internal server error")
		}
		c.JSON(status, body)
	}
}
