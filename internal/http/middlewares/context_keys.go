package middlewares

// gin context keys shared with the handlers package.
const (
	CtxRequestID    = "request_id"
	CtxUserID       = "auth.userID"
	CtxRole         = "auth.role"
	CtxTokenID      = "auth.tokenID"
	CtxTokenExpiry  = "auth.tokenExpiresAt"
	CtxExposeErrors = "errors.expose"
)
