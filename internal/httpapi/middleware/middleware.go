package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/maskerade/privchat/internal/common"
)

const RequestIDHeader = "X-Request-ID"

// Recovery converts panics into the uniform {error} payload with a full trace
// in the log, never a partial response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Recovery] panic: %v\n%s", r, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// RequestID tags every request with a ULID unless the caller supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			if generated, err := common.NewULID(); err == nil {
				id = generated
			}
		}
		c.Header(RequestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}
