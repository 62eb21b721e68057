package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// corsMiddleware implements the OPTIONS * preflight and per-response CORS
// headers of spec.md §6. An empty AllowedOrigins disables CORS headers
// entirely.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(s.AllowedOrigins) == 0 {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if allowedOrigin(s.AllowedOrigins, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

func allowedOrigin(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
