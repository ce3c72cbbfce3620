package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS allows browser players on other origins to fetch assets and read
// the size header
func CORS() gin.HandlerFunc {
	return CORSWithHeaders()
}

// CORSWithHeaders is CORS with extra response headers exposed to scripts
func CORSWithHeaders(exposed ...string) gin.HandlerFunc {
	expose := strings.Join(append([]string{"Content-Length"}, exposed...), ", ")
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Expose-Headers", expose)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
