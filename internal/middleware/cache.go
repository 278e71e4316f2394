package middleware

import (
	"github.com/gin-gonic/gin"
)

// CacheControl sets the Cache-Control header, e.g. "no-store" for the
// session config the landing page polls.
func CacheControl(directive string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", directive)
		c.Next()
	}
}
