package handlers

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/coursehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func exposeErrors(ctx *gin.Context) bool {
	v, ok := ctx.Get(middlewares.CtxExposeErrors)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func errorBody(ctx *gin.Context, code, message string) gin.H {
	body := gin.H{
		"message": message,
		"code":    code,
	}
	if id := requestIDFrom(ctx); id != "" {
		body["requestId"] = id
	}
	return body
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	body := errorBody(ctx, code, message)
	if details != nil {
		body["details"] = details
	}
	ctx.JSON(status, body)
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondValidation(ctx *gin.Context, fields []FieldError) {
	messages := make([]string, 0, len(fields))
	for _, f := range fields {
		messages = append(messages, f.Message)
	}

	body := errorBody(ctx, "validation_failed", "Validation failed")
	body["errors"] = messages
	body["details"] = gin.H{"fields": fields}

	ctx.JSON(http.StatusBadRequest, body)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusForbidden, code, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

// RespondInternal always logs err; the client sees it only when error
// details are enabled.
func RespondInternal(ctx *gin.Context, message string, err error) {
	slog.Default().ErrorContext(ctx.Request.Context(), message,
		"err", err,
		"request_id", requestIDFrom(ctx),
		"route", ctx.FullPath(),
	)

	body := errorBody(ctx, "internal_error", message)
	if err != nil && exposeErrors(ctx) {
		body["error"] = err.Error()
	}
	ctx.JSON(http.StatusInternalServerError, body)
}
