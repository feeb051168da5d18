package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/plant-station-service/pkg/common"
)

const bearerPrefix = "Bearer "

// RequireBearer is a no-op unless a token is configured.
func (rs *RestfulServer) RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rs.BearerToken == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing"})
			return
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		if subtle.ConstantTimeCompare([]byte(token), []byte(rs.BearerToken)) != 1 {
			common.GetLoggerWith(common.LoggerNameRestfulServer).Warn("Rejected bearer token",
				zap.String("path", c.FullPath()),
				zap.String("device_id", c.GetHeader(common.HeaderDeviceID)))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token invalid"})
			return
		}

		c.Next()
	}
}
