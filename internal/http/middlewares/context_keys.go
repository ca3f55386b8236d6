package middlewares

const (
	ctxUserKey   = "auth.user"
	ctxUserIDKey = "auth.userID"
	ctxRoleKey   = "auth.role"

	CtxRequestID = "request_id"
)
