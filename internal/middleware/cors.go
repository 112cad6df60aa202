package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS allows the terminal frontend (served from another origin in
// development) to call the API.
func CORS(domain string) gin.HandlerFunc {
	allowed := "*"
	if domain != "" {
		allowed = domain
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowed)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
