package middleware

import (
	"context"
	"time"

	"github.com/Payphone-Digital/accounts/internal/constants"
	ctxutil "github.com/Payphone-Digital/accounts/pkg/context"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextMiddleware attaches request metadata and a request id to the
// request context and bounds the request by timeout.
func ContextMiddleware(module string, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(constants.HeaderXRequestID, requestID)

		ctx := ctxutil.WithRequestID(c.Request.Context(), requestID)
		ctx = ctxutil.NewContextWithRequest(ctx, c.Request, module, c.FullPath())

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
