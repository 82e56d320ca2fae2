package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// versionETag derives a weak validator from a document id and its last
// write time. Any edit bumps updatedAt, so the tag changes with it.
func versionETag(id string, updatedAt time.Time) string {
	return `W/"` + id + "-" + strconv.FormatInt(updatedAt.UnixNano(), 36) + `"`
}

// respondVersioned writes payload with an ETag, or 304 when the client
// already holds that version.
func respondVersioned(ctx *gin.Context, status int, etag string, payload any) {
	ctx.Header("ETag", etag)
	ctx.Header("Cache-Control", "private, no-cache")

	if etagMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, payload)
}

func etagMatches(header, current string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	// If-None-Match uses weak comparison
	want := opaqueTag(current)
	for _, part := range strings.Split(header, ",") {
		if opaqueTag(part) == want {
			return true
		}
	}

	return false
}

func opaqueTag(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "W/")
}
