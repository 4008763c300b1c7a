// Package middleware implements the cross-cutting wrappers around a
// single dispatch invocation: the onion-model Chain from
// BX-D-mini-RPC/middleware, retargeted from *message.RPCMessage (a TCP
// frame envelope) to *message.Request/*message.Response (an XML-RPC
// call).
package middleware

import "github.com/glensc/xmlrpc-go/message"

// HandlerFunc and Middleware are aliases of the message package's types,
// kept here under the names the rest of this package's exported API
// speaks in (mirrors BX-D-mini-RPC/middleware.go's own HandlerFunc/
// Middleware type aliases).
type HandlerFunc = message.HandlerFunc
type Middleware = message.Middleware

// Chain composes middlewares into one, applied in registration order:
// Chain(A, B, C)(handler) == A(B(C(handler))), so A's before-code runs
// first and A's after-code runs last.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
