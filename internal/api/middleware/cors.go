package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET, POST, PUT, OPTIONS"
	corsHeaders = "Content-Type, Accept-Language"
	corsMaxAge  = "86400"
)

// CORS lets a separately hosted frontend call the JSON API. An entry of "*"
// admits every origin. Preflights from an origin outside the list are refused
// with 403; plain requests from one pass through without CORS headers, which
// leaves the browser to block the response.
func CORS(origins []string) gin.HandlerFunc {
	anyOrigin := false
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			anyOrigin = true
			continue
		}
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		preflight := c.Request.Method == http.MethodOptions
		if origin == "" {
			if preflight {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
			return
		}

		c.Writer.Header().Add("Vary", "Origin")
		if _, ok := allowed[origin]; !ok && !anyOrigin {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", corsMethods)
		h.Set("Access-Control-Allow-Headers", corsHeaders)
		if preflight {
			h.Set("Access-Control-Max-Age", corsMaxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
