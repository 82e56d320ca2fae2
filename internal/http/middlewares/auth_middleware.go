package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/coursehub/internal/actorctx"
	"github.com/geocoder89/coursehub/internal/auth"
	"github.com/gin-gonic/gin"
)

// TokenVerifier is satisfied by *auth.Manager.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// FailureRecorder counts rejections by reason; *observability.Prom satisfies it.
type FailureRecorder interface {
	AuthFailure(reason string)
}

type AuthMiddleware struct {
	jwt     TokenVerifier
	revoked RevocationChecker
	metrics FailureRecorder
}

func NewAuthMiddleware(jwt TokenVerifier, revoked RevocationChecker, metrics FailureRecorder) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, revoked: revoked, metrics: metrics}
}

func (m *AuthMiddleware) fail(c *gin.Context, status int, reason, code, message string) {
	if m.metrics != nil {
		m.metrics.AuthFailure(reason)
	}
	abortJSON(c, status, code, message)
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if strings.TrimSpace(authHeader) == "" {
			m.fail(c, http.StatusUnauthorized, "missing_header", "unauthorized", "Authorization header missing")
			return
		}

		scheme, raw, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
		raw = strings.TrimSpace(raw)
		if !ok || scheme != "Bearer" || raw == "" {
			m.fail(c, http.StatusUnauthorized, "bad_scheme", "unauthorized", "Invalid authorization format")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				m.fail(c, http.StatusUnauthorized, "expired", "token_expired", "Token expired")
				return
			}
			m.fail(c, http.StatusUnauthorized, "invalid", "invalid_token", "Invalid token")
			return
		}

		if m.revoked != nil {
			revoked, err := m.revoked.IsRevoked(c.Request.Context(), claims.JTI)
			if err != nil {
				slog.Default().ErrorContext(c.Request.Context(), "denylist lookup failed", "err", err)
				m.fail(c, http.StatusInternalServerError, "error", "internal_error", "Internal server error")
				return
			}
			if revoked {
				m.fail(c, http.StatusUnauthorized, "revoked", "token_revoked", "Token revoked")
				return
			}
		}

		// Stash useful bits of identity on the context
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxTokenID, claims.JTI)
		c.Set(CtxTokenExpiry, claims.ExpiresAtTime())

		c.Request = c.Request.WithContext(actorctx.With(c.Request.Context(), actorctx.Actor{
			UserID: claims.UserID,
			Role:   claims.Role,
		}))

		c.Next()
	}
}

// Optional helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, CtxUserID)
}

func RoleFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, CtxRole)
}

func TokenIDFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, CtxTokenID)
}

func TokenExpiryFromContext(c *gin.Context) (time.Time, bool) {
	v, ok := c.Get(CtxTokenExpiry)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

func stringFromContext(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// abortJSON writes the common error envelope; handlers.RespondError produces
// the same shape for errors raised after routing.
func abortJSON(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"message": message,
		"code":    code,
	}
	if id, ok := stringFromContext(c, CtxRequestID); ok {
		body["requestId"] = id
	}
	c.AbortWithStatusJSON(status, body)
}
