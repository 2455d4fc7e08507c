package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type ctxKey string //these two lines  ensures safe storage/retrieval in context.Context.
const CtxUserID ctxKey = "uid"
const CtxUsername ctxKey = "username"

// BearerToken extracts a token from the Authorization header or, for
// websocket upgrades that cannot set headers, the token query parameter.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

func JWTMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := BearerToken(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := ParseToken(secret, tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Token"})
			return
		}

		c.Set(string(CtxUserID), claims.UserID)
		c.Set(string(CtxUsername), claims.Username)
		c.Next()
	}
}

func MustUserID(c *gin.Context) string {
	if v, ok := c.Get(string(CtxUserID)); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// Username is the display name from the token, empty when it carried none.
func Username(c *gin.Context) string {
	return c.GetString(string(CtxUsername))
}
