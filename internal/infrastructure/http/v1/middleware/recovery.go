// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"ledgertree/internal/core/apperror"
	"ledgertree/pkg/logger"
)

// Recovery turns a panic into a 500 response and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", rec)))
				// ErrorHandler sits inside this middleware and was unwound
				// by the panic, so the response is written here.
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"code":    apperror.CodeInternal,
						"message": "Internal server error",
						"details": map[string]any{"request_id": c.GetString("request_id")},
					})
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
