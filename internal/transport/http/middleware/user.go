package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legalrecords-assistant/internal/transport/http/response"
)

const (
	HeaderUserID     = "X-User-ID"
	ContextUserIDKey = "user_id"
	AnonymousUserID  = "anonymous"

	maxUserIDLength = 64
)

// ResolveUser trusts the caller-supplied X-User-ID header and falls back to
// the shared anonymous user. There is no authentication; the header only
// scopes conversations.
func ResolveUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			userID = AnonymousUserID
		}
		if len(userID) > maxUserIDLength {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "X-User-ID header is too long")
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

func UserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok && userID != ""
}
