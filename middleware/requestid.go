package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDMiddleware gives every request a stable X-Request-ID. A client
// supplied value is propagated as-is, otherwise a fresh UUIDv4 is issued.
// Handlers can read it from the gin context under "requestId".
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set("requestId", reqID)
		c.Next()
	}
}
