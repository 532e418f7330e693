package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bihua-university/catalog/internal/semver"
)

const (
	RequestIDHeader     = "X-Request-Id"
	ClientVersionHeader = "Catalog-Client-Version"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}

func (s *Site) authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.token == "" {
			c.Next()
			return
		}
		const bearerPrefix = "Bearer "
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, bearerPrefix) || auth[len(bearerPrefix):] != s.token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// checkVersion only applies to clients that announce a version; browsers
// and curl pass through.
func (s *Site) checkVersion() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(ClientVersionHeader)
		if raw == "" {
			c.Next()
			return
		}
		v, ok := semver.Parse(raw)
		if !ok || !v.GreaterEqual(s.minVersion) {
			c.AbortWithStatusJSON(http.StatusUpgradeRequired, gin.H{
				"error":       "client version too old",
				"min_version": s.minVersion.String(),
			})
			return
		}
		c.Next()
	}
}
