package middleware

import (
	"context"
	"fmt"

	"github.com/glensc/xmlrpc-go/message"
)

// ExceptionPolicy selects how a panicking handler is turned into a
// Response, per SPEC_FULL.md §6/§7's ExceptionHandling option.
type ExceptionPolicy int

const (
	// WrapAsServerError turns any recovered panic into a generic
	// server_error fault, discarding the panic value's detail.
	WrapAsServerError ExceptionPolicy = iota
	// WrapWithExceptionCodeAndMessage turns a recovered *message.Fault
	// panic into that exact fault, and anything else into a server_error
	// fault carrying the panic value's text.
	WrapWithExceptionCodeAndMessage
	// Propagate re-raises the recovered panic unchanged (nothing is
	// logged), so it surfaces to the caller of the wrapped handler.
	Propagate
)

// Recover converts a panicking handler into a fault Response (or
// re-panics), generalized from BX-D-mini-RPC's per-middleware error
// handling into a single policy-driven wrapper, since the teacher has no
// direct equivalent of XML-RPC's distinct ExceptionHandling modes.
func Recover(policy ExceptionPolicy) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (resp *message.Response) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				switch policy {
				case Propagate:
					panic(r)
				case WrapWithExceptionCodeAndMessage:
					if f, ok := r.(*message.Fault); ok {
						resp = message.FaultResponse(f)
						return
					}
					resp = message.FaultResponse(message.NewFault("server_error", fmt.Sprint(r)))
				default:
					resp = message.FaultResponse(message.NewFault("server_error", ""))
				}
			}()
			return next(ctx, req)
		}
	}
}
