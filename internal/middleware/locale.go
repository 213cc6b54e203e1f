package middleware

import (
	"github.com/gin-gonic/gin"

	"projectcomments/internal/i18n"
	"projectcomments/internal/session"
)

// Locale negotiates the response language from Accept-Language.
func Locale(bundle *i18n.Bundle) gin.HandlerFunc {
	return func(c *gin.Context) {
		session.SetLocale(c, bundle.Match(c.GetHeader("Accept-Language")))
		c.Next()
	}
}
