package middleware

import (
	"net/http"
	"os"
	"strings"

	"planhub-api/pkg/appenv"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware configures CORS headers.
//   - Outside production it allows any origin ("*") for convenience.
//   - In production (APP_ENV=production or Gin release mode) it reflects the
//     incoming Origin only when it appears in the comma-separated
//     ALLOWED_ORIGINS env var. ALLOW_CREDENTIALS=true additionally sets
//     Access-Control-Allow-Credentials.
func CORSMiddleware() gin.HandlerFunc {
	isProd := appenv.IsProduction() || gin.Mode() == gin.ReleaseMode

	var allowedOrigins map[string]struct{}
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		allowedOrigins = make(map[string]struct{})
		for _, o := range strings.Split(env, ",") {
			origin := strings.TrimSpace(o)
			if origin != "" {
				allowedOrigins[origin] = struct{}{}
			}
		}
	}

	allowCredentials := strings.EqualFold(os.Getenv("ALLOW_CREDENTIALS"), "true")
	allowedMethods := "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	allowedHeaders := "Origin, Content-Type, Authorization, X-Request-ID"

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		c.Header("Vary", "Origin")

		if !isProd {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", allowedMethods)
			c.Header("Access-Control-Allow-Headers", allowedHeaders)
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
			return
		}

		if origin != "" && allowedOrigins != nil {
			if _, ok := allowedOrigins[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Methods", allowedMethods)
				c.Header("Access-Control-Allow-Headers", allowedHeaders)
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
			}
		}

		if c.Request.Method == http.MethodOptions {
			// Preflight from a disallowed origin gets 204 without allow
			// headers; the browser blocks the actual request.
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
