package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// Authentication guards the monitoring API with an optional bearer token
// taken from MONITORING_API_TOKEN. When the variable is unset all requests
// pass; health and websocket upgrades always pass so dashboards can connect
// before configuring a token.
func Authentication(c *gin.Context) {
	token := os.Getenv("MONITORING_API_TOKEN")
	if token == "" {
		c.Next()
		return
	}
	path := c.Request.URL.Path
	if path == "/healthz" || strings.HasSuffix(path, "/ws") {
		c.Next()
		return
	}
	auth := c.GetHeader("Authorization")
	if auth != "Bearer "+token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": "UNAUTHORIZED", "message": "missing or invalid token"}})
		return
	}
	c.Next()
}
