package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ClientIDKey is the context key holding a stable id for the caller.
const ClientIDKey = "client_id"

// APIKey guards the control API with a shared key, read from header or, for
// websocket viewers that cannot set headers, from the "key" query parameter.
// An empty key disables the check.
func APIKey(header, key string) gin.HandlerFunc {
	if key == "" {
		return func(c *gin.Context) { c.Next() }
	}

	want := []byte(key)
	sum := sha256.Sum256(want)
	clientID := "key:" + hex.EncodeToString(sum[:4])

	return func(c *gin.Context) {
		got := c.GetHeader(header)
		if got == "" {
			got = c.Query("key")
		}
		if got == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Set(ClientIDKey, clientID+"@"+c.ClientIP())
		c.Next()
	}
}
