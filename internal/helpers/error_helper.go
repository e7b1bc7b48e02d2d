package helpers

import (
	"errors"
	"net/http"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithAppError translates a service error into the JSON envelope and
// logs it: 4xx at warn, 5xx at error.
func RespondWithAppError(c *gin.Context, log *zap.Logger, err error) {
	kind := apperrors.KindOf(err)
	status := kind.HTTPStatus()

	resp := ErrorResponse{Error: HTTPStatusText(status), Message: "Internal server error."}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Detail = appErr.Detail()
	} else {
		resp.Detail = err.Error()
	}

	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.String("kind", kind.String()),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Warn("request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, resp)
}

func RespondWithData(c *gin.Context, statusCode int, message string, data any) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(statusCode, body)
}

func RespondWithList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
}

func RespondWithMessage(c *gin.Context, statusCode int, message string, extra gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(statusCode, body)
}
