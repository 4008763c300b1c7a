package middleware

import (
	"context"
	"time"

	"github.com/glensc/xmlrpc-go/message"
)

// Timeout bounds a handler invocation by timeout, generalized from
// BX-D-mini-RPC/middleware.TimeOutMiddleware: the handler runs on its own
// goroutine so a handler that ignores ctx cancellation still gets its
// result discarded on timeout rather than blocking the caller forever.
// A timeout of 0 disables the wrapper entirely.
func Timeout(timeout time.Duration) Middleware {
	if timeout <= 0 {
		return func(next HandlerFunc) HandlerFunc { return next }
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *message.Response, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return message.FaultResponse(message.NewFault("server_error", "request timed out"))
			}
		}
	}
}
