package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
)

// Timeout bounds every downstream store call through the request context.
// Expired deadlines surface to the caller as a retryable timeout error.
func Timeout(d time.Duration) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if d <= 0 {
			c.Next(ctx)
			return
		}

		tctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		c.Next(tctx)
	}
}
