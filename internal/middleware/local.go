package middleware

import (
	"net"
	"net/http"
	"net/netip"

	"github.com/gin-gonic/gin"
)

// LocalOnly refuses callers whose connection does not come from a loopback
// address. The peer is taken from the connection, never from forwarding headers.
func LocalOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isLoopback(c.Request.RemoteAddr) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Only available from this machine",
			})
			return
		}
		c.Next()
	}
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return addr.Unmap().IsLoopback()
}
