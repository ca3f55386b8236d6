package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openlearnhq/campdir/internal/query"
	"github.com/openlearnhq/campdir/internal/store/mongodb"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// Success envelope: {success:true, data, count?, pagination?}.

func RespondOK(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func RespondCreated(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

// RespondOKCached is RespondOK plus ETag revalidation, for single
// documents that clients poll.
func RespondOKCached(ctx *gin.Context, data interface{}) {
	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"success": true, "data": data})
}

func RespondList(ctx *gin.Context, data interface{}, count int, pagination query.Pagination) {
	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"count":      count,
		"pagination": pagination,
		"data":       data,
	})
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"success": false,
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondStoreError is the single boundary translator for entity-store
// failures: malformed identifiers and duplicate keys come back 400,
// missing records 404, anything else 500.
func RespondStoreError(ctx *gin.Context, err error, resource string) {
	switch {
	case errors.Is(err, mongodb.ErrInvalidID):
		RespondError(ctx, http.StatusBadRequest, "invalid_id", resource+" id is not a valid object id", nil)
	case errors.Is(err, mongodb.ErrNotFound):
		RespondNotFound(ctx, resource+" not found")
	case errors.Is(err, mongodb.ErrDuplicate):
		RespondError(ctx, http.StatusBadRequest, "duplicate", "Duplicate value for a unique field", nil)
	default:
		RespondInternal(ctx, "Could not access "+resource)
	}
}
