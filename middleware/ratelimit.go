package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/glensc/xmlrpc-go/message"
)

// RateLimit applies a shared token-bucket limiter across every dispatched
// call, generalized from BX-D-mini-RPC/middleware.RateLimitMiddleware.
// Over-limit calls fault rather than blocking, matching SPEC_FULL.md §6's
// documented server_error message.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			if !limiter.Allow() {
				return message.FaultResponse(message.NewFault("server_error", "rate limit exceeded"))
			}
			return next(ctx, req)
		}
	}
}
