package server

import (
	"log"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid"
)

// RequestIDHeader carries the per-request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// RequestID tags each request with an ID, reusing one the client supplied.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			var err error
			id, err = gonanoid.Generate(requestIDAlphabet, 16)
			if err != nil {
				log.Printf("[WARN] generate request id: %v", err)
			}
		}
		if id != "" {
			c.Set("requestID", id)
			c.Header(RequestIDHeader, id)
		}
		c.Next()
	}
}
