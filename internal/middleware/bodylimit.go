package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/fintrack-auth/internal/http/response"
)

// BodyLimit caps request bodies at limit bytes. Declared oversize bodies are
// rejected with 413; undeclared ones fail when the handler reads past limit.
func BodyLimit(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			response.Abort(c, http.StatusRequestEntityTooLarge, "Request body too large.")
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
