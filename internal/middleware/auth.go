package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"projectcomments/internal/pkg/jwt"
	"projectcomments/internal/pkg/response"
	"projectcomments/internal/session"
)

// JWTAuth validates the bearer token and stores the caller in the gin
// context. Websocket clients cannot set headers, so a "token" query
// parameter is accepted as well.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, code, msg := bearerToken(c)
		if code != "" {
			response.Error(c, http.StatusUnauthorized, code, msg)
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(tokenStr)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		session.Set(c, claims.UserID, claims.Username, claims.AccountID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, string, string) {
	h := c.GetHeader("Authorization")
	if h == "" {
		if q := strings.TrimSpace(c.Query("token")); q != "" {
			return q, "", ""
		}
		return "", "AUTH_HEADER_MISSING", "Missing Authorization header"
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "INVALID_AUTH_FORMAT", "Invalid Authorization header"
	}

	tokenStr := strings.TrimSpace(parts[1])
	if tokenStr == "" {
		return "", "INVALID_AUTH_FORMAT", "Empty token"
	}
	return tokenStr, "", ""
}
