// Package message defines the envelope types exchanged between the
// dispatch engine (package server) and the middleware chain (package
// middleware): Request, Response, Fault, and the three handler calling
// conventions.
//
// It is a deliberate leaf package, grounded on BX-D-mini-RPC's message
// package (RPCMessage was the single envelope shared by server, codec,
// transport and middleware without those packages importing each other);
// here the same role is split into a richer Request/Response pair
// because XML-RPC's wire shape is richer than mini-rpc's ServiceMethod/
// Payload/Error triple, but the reason for the package's existence is
// identical: avoid a server <-> middleware import cycle.
package message

import (
	"context"
	"fmt"

	"github.com/glensc/xmlrpc-go/value"
)

// Request is a parsed XML-RPC call: a method name plus its ordered
// parameters.
type Request struct {
	Method string
	Params []*value.Value
}

// Fault is an XML-RPC application-level error: (faultCode, faultString).
// FaultCode is always non-zero.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("xmlrpc fault %d: %s", f.Code, f.Message)
}

// Response is either a successful return Value or a Fault, plus the
// bookkeeping the driver needs for debug tracing and content negotiation.
type Response struct {
	Value *value.Value
	Fault *Fault
	// RawBody holds the original request bytes (post-decompression, as
	// decoded off the wire), retained for debug tracing — not the
	// serialized response.
	RawBody     []byte
	ContentType string
}

// Success wraps v as a successful Response.
func Success(v *value.Value) *Response { return &Response{Value: v} }

// FaultResponse wraps a symbolic fault as a Response.
func FaultResponse(f *Fault) *Response { return &Response{Fault: f} }

// IsFault reports whether r represents an application-level failure.
func (r *Response) IsFault() bool { return r != nil && r.Fault != nil }

// ParametersType selects a dispatch entry's calling convention. The zero
// value, ParametersUnset, means "inherit the server-wide default."
type ParametersType int

const (
	ParametersUnset ParametersType = iota
	TypedValue
	NativeValue
	Epi
)

// HandlerFunc is the shape the middleware chain operates on: it always
// sees a Request in and a Response out, regardless of the entry's calling
// convention — the server package is responsible for adapting
// Typed/Native/Epi handlers to this shape before handing them to the
// chain (see server.buildBusinessHandler).
type HandlerFunc func(ctx context.Context, req *Request) *Response

// Middleware wraps a HandlerFunc with cross-cutting behavior (timeout,
// rate limiting, panic recovery, ...), generalized from
// BX-D-mini-RPC/middleware.Middleware.
type Middleware func(next HandlerFunc) HandlerFunc

// TypedHandlerFunc receives the full parsed Request and returns a
// *Response, a *value.Value, or an error.
type TypedHandlerFunc func(ctx context.Context, req *Request) (any, error)

// NativeHandlerFunc receives parameters unwrapped to native Go values
// (see value.ToNative) and returns a *Response, a *value.Value, a native
// Go value, or an error.
type NativeHandlerFunc func(ctx context.Context, params []any) (any, error)

// EpiHandlerFunc receives the method name, native parameters, and the
// server's configured UserData, and returns a native Go value (or a
// value.NativeStruct with faultCode/faultString members to signal a
// fault) or an error.
type EpiHandlerFunc func(ctx context.Context, method string, params []any, userData any) (any, error)

// Entry is one registration in a dispatch map.
type Entry struct {
	TypedHandler   TypedHandlerFunc
	NativeHandler  NativeHandlerFunc
	EpiHandler     EpiHandlerFunc
	Signatures     [][]value.Tag
	Doc            string
	SignatureDocs  []string
	ParametersType ParametersType
}

// EntryOption configures an Entry at registration time.
type EntryOption func(*Entry)

// WithSignatures declares the alternative call signatures accepted by an
// entry; each signature is [returnType, param1, ..., paramN].
func WithSignatures(sigs ...[]value.Tag) EntryOption {
	return func(e *Entry) { e.Signatures = sigs }
}

// WithDoc sets the entry's system.methodHelp description.
func WithDoc(doc string) EntryOption {
	return func(e *Entry) { e.Doc = doc }
}

// WithSignatureDocs sets per-parameter human descriptions.
func WithSignatureDocs(docs ...string) EntryOption {
	return func(e *Entry) { e.SignatureDocs = docs }
}

// WithParametersType overrides the server-wide calling convention for
// this entry only.
func WithParametersType(pt ParametersType) EntryOption {
	return func(e *Entry) { e.ParametersType = pt }
}

// EffectiveParametersType resolves an entry's calling convention against
// the server-wide default.
func (e *Entry) EffectiveParametersType(serverDefault ParametersType) ParametersType {
	if e.ParametersType != ParametersUnset {
		return e.ParametersType
	}
	if serverDefault == ParametersUnset {
		return TypedValue
	}
	return serverDefault
}
