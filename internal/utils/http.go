package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientIP resolves the originating client address behind the reverse proxy
// that fronts both the mini-app and the bot platform's webhook calls.
// X-Real-IP wins, then the first X-Forwarded-For hop, then gin's own guess.
func ClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return c.ClientIP()
}
