// Package server implements the XML-RPC dispatch engine: service
// registration, signature checking, the three calling conventions, fault
// translation, and the system.* introspection suite built on top of it.
//
// It is grounded on BX-D-mini-RPC/server, generalized from a TCP-framed,
// reflection-dispatched RPC server to an HTTP-hosted XML-RPC engine: the
// dispatch map, the middleware-wrapped business handler, and the
// register-before-serve discipline all carry over; reflect.Call and the
// TCP accept loop do not (handlers here are plain Go closures, and a
// single call is one logical invocation, not a framed connection).
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/glensc/xmlrpc-go/message"
	"github.com/glensc/xmlrpc-go/middleware"
	"github.com/glensc/xmlrpc-go/value"
)

// ErrReservedName is returned by Register when name starts with the
// "system." prefix reserved for introspection methods.
var ErrReservedName = errors.New("server: method names starting with \"system.\" are reserved")

// Options configures a Server at construction time.
type Options struct {
	Debug                    int
	ExceptionHandling        middleware.ExceptionPolicy
	CompressResponse         bool
	AcceptedCompression      []string
	AcceptedCharsetEncodings []string
	ResponseCharsetEncoding  string // "Auto", "Default", or a specific charset name
	AllowSystemFuncs         bool
	NilExtension             bool
	FunctionsParametersType  message.ParametersType
	NativeEncodingOptions    value.NativeEncodingOptions
	UserData                 any
	HandlerTimeout           time.Duration
	RateLimit                *RateLimitConfig
	Logger                   *zap.Logger
}

// RateLimitConfig configures the optional shared rate limiter applied to
// every dispatched call, per SPEC_FULL.md §6.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Option mutates an Options during New.
type Option func(*Options)

// Server holds the dispatch map and the middleware chain wrapping every
// invocation. Register must only be called before concurrent Execute
// calls begin — the map is treated as read-only thereafter, mirroring
// the teacher's serviceMap discipline.
type Server struct {
	opts Options

	userMethods   map[string]*message.Entry
	systemMethods map[string]*message.Entry

	chain middleware.Middleware

	logger *zap.Logger
}

// New constructs a Server, applying opts in order, and wires the
// system.* introspection suite into the built-in map.
func New(opts ...Option) *Server {
	o := Options{
		AllowSystemFuncs:        true,
		FunctionsParametersType: message.TypedValue,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	svr := &Server{
		opts:          o,
		userMethods:   make(map[string]*message.Entry),
		systemMethods: make(map[string]*message.Entry),
		logger:        logger,
	}

	// Recover is innermost so it runs on the same goroutine as the handler,
	// including the one Timeout starts.
	var mws []middleware.Middleware
	mws = append(mws, middleware.Timeout(o.HandlerTimeout))
	if o.RateLimit != nil {
		mws = append(mws, middleware.RateLimit(o.RateLimit.RPS, o.RateLimit.Burst))
	}
	mws = append(mws, middleware.Recover(o.ExceptionHandling))
	svr.chain = middleware.Chain(mws...)

	svr.registerIntrospection()
	return svr
}

// WithDebug sets the Debug level (0-3).
func WithDebug(level int) Option { return func(o *Options) { o.Debug = level } }

// WithExceptionHandling sets the panic-translation policy.
func WithExceptionHandling(p middleware.ExceptionPolicy) Option {
	return func(o *Options) { o.ExceptionHandling = p }
}

// WithCompressResponse sets Options.CompressResponse. The Driver does not
// read it: response compression is governed by the transport.Options
// passed to NewDriver.
func WithCompressResponse(enabled bool) Option {
	return func(o *Options) { o.CompressResponse = enabled }
}

// WithAcceptedCompression sets Options.AcceptedCompression. The Driver
// does not read it: the request Content-Encoding values it inflates come
// from the transport.Options passed to NewDriver.
func WithAcceptedCompression(encodings ...string) Option {
	return func(o *Options) { o.AcceptedCompression = encodings }
}

// WithResponseCharsetEncoding sets Options.ResponseCharsetEncoding
// ("Auto", "Default", or a fixed charset name). The Driver does not read
// it: charset negotiation uses the transport.Options passed to NewDriver.
func WithResponseCharsetEncoding(policy string) Option {
	return func(o *Options) { o.ResponseCharsetEncoding = policy }
}

// WithAllowSystemFuncs toggles whether system.* methods are reachable.
func WithAllowSystemFuncs(allow bool) Option {
	return func(o *Options) { o.AllowSystemFuncs = allow }
}

// WithNilExtension enables the <nil/>/<ex:nil/> scalar in both directions
// of the wire codec and advertises it from system.getCapabilities.
func WithNilExtension(enabled bool) Option {
	return func(o *Options) { o.NilExtension = enabled }
}

// WithFunctionsParametersType sets the server-wide default calling
// convention.
func WithFunctionsParametersType(pt message.ParametersType) Option {
	return func(o *Options) { o.FunctionsParametersType = pt }
}

// WithUserData sets the opaque value passed to Epi handlers.
func WithUserData(data any) Option { return func(o *Options) { o.UserData = data } }

// WithHandlerTimeout bounds every dispatched handler invocation. Zero
// disables the timeout wrapper.
func WithHandlerTimeout(d time.Duration) Option { return func(o *Options) { o.HandlerTimeout = d } }

// WithRateLimit installs a shared token-bucket limiter in front of every
// dispatched call.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Options) { o.RateLimit = &RateLimitConfig{RPS: rps, Burst: burst} }
}

// WithLogger sets the structured logger used for diagnostics. Defaults to
// a no-op logger.
func WithLogger(logger *zap.Logger) Option { return func(o *Options) { o.Logger = logger } }

// Register adds a handler entry under name. Names starting with
// "system." are reserved for introspection and rejected with
// ErrReservedName.
func (s *Server) Register(name string, opts ...message.EntryOption) (*message.Entry, error) {
	if strings.HasPrefix(name, "system.") {
		return nil, fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	entry := &message.Entry{}
	for _, opt := range opts {
		opt(entry)
	}
	s.userMethods[name] = entry
	return entry, nil
}

// RegisterTyped is a convenience wrapper around Register for the common
// case of a TypedValue handler.
func (s *Server) RegisterTyped(name string, handler message.TypedHandlerFunc, opts ...message.EntryOption) error {
	opts = append([]message.EntryOption{func(e *message.Entry) { e.TypedHandler = handler }}, opts...)
	_, err := s.Register(name, opts...)
	return err
}

// RegisterNative is a convenience wrapper around Register for a
// NativeValue handler.
func (s *Server) RegisterNative(name string, handler message.NativeHandlerFunc, opts ...message.EntryOption) error {
	opts = append([]message.EntryOption{
		func(e *message.Entry) { e.NativeHandler = handler },
		message.WithParametersType(message.NativeValue),
	}, opts...)
	_, err := s.Register(name, opts...)
	return err
}

// RegisterEpi is a convenience wrapper around Register for an Epi
// handler.
func (s *Server) RegisterEpi(name string, handler message.EpiHandlerFunc, opts ...message.EntryOption) error {
	opts = append([]message.EntryOption{
		func(e *message.Entry) { e.EpiHandler = handler },
		message.WithParametersType(message.Epi),
	}, opts...)
	_, err := s.Register(name, opts...)
	return err
}

// Execute runs the full C5 state machine for one parsed request: lookup,
// signature check, calling-convention dispatch, middleware-wrapped
// invocation, and return coercion.
func (s *Server) Execute(ctx context.Context, req *message.Request) *message.Response {
	entry, ok := s.lookup(req.Method)
	if !ok {
		return message.FaultResponse(message.NewFault("unknown_method", ""))
	}

	if fault := checkSignature(entry, req.Params); fault != nil {
		return message.FaultResponse(fault)
	}

	handler := s.buildBusinessHandler(entry)
	wrapped := s.chain(handler)
	resp := wrapped(ctx, req)
	if resp == nil {
		return message.FaultResponse(message.NewFault("server_error", ""))
	}
	return resp
}

// NilExtensionEnabled reports whether the server was configured to accept
// and emit the <nil/> scalar, for the wire codec and introspection layers
// to consult without exposing the rest of Options.
func (s *Server) NilExtensionEnabled() bool { return s.opts.NilExtension }

func (s *Server) lookup(method string) (*message.Entry, bool) {
	if strings.HasPrefix(method, "system.") {
		if !s.opts.AllowSystemFuncs {
			return nil, false
		}
		entry, ok := s.systemMethods[method]
		return entry, ok
	}
	entry, ok := s.userMethods[method]
	return entry, ok
}

// buildBusinessHandler adapts an Entry's calling convention into the
// uniform message.HandlerFunc shape the middleware chain operates on,
// per SPEC_FULL.md §4.5 step 3 and §9's "return-value polymorphism" note.
func (s *Server) buildBusinessHandler(entry *message.Entry) message.HandlerFunc {
	pt := entry.EffectiveParametersType(s.opts.FunctionsParametersType)
	return func(ctx context.Context, req *message.Request) *message.Response {
		switch pt {
		case message.NativeValue:
			return s.invokeNative(ctx, entry, req)
		case message.Epi:
			return s.invokeEpi(ctx, entry, req)
		default:
			return s.invokeTyped(ctx, entry, req)
		}
	}
}

func (s *Server) invokeTyped(ctx context.Context, entry *message.Entry, req *message.Request) *message.Response {
	if entry.TypedHandler == nil {
		return message.FaultResponse(message.NewFault("server_error", "no typed handler registered"))
	}
	result, err := entry.TypedHandler(ctx, req)
	if err != nil {
		return errorToResponse(err)
	}
	return s.coerceReturn(result)
}

func (s *Server) invokeNative(ctx context.Context, entry *message.Entry, req *message.Request) *message.Response {
	if entry.NativeHandler == nil {
		return message.FaultResponse(message.NewFault("server_error", "no native handler registered"))
	}
	params := make([]any, len(req.Params))
	for i, p := range req.Params {
		native, err := value.ToNative(p)
		if err != nil {
			return message.FaultResponse(message.NewFault("incorrect_params", err.Error()))
		}
		params[i] = native
	}
	result, err := entry.NativeHandler(ctx, params)
	if err != nil {
		return errorToResponse(err)
	}
	return s.coerceReturn(result)
}

func (s *Server) invokeEpi(ctx context.Context, entry *message.Entry, req *message.Request) *message.Response {
	if entry.EpiHandler == nil {
		return message.FaultResponse(message.NewFault("server_error", "no epi handler registered"))
	}
	params := make([]any, len(req.Params))
	for i, p := range req.Params {
		native, err := value.ToNative(p)
		if err != nil {
			return message.FaultResponse(message.NewFault("incorrect_params", err.Error()))
		}
		params[i] = native
	}
	result, err := entry.EpiHandler(ctx, req.Method, params, s.opts.UserData)
	if err != nil {
		return errorToResponse(err)
	}
	if ns, ok := result.(value.NativeStruct); ok {
		if code, hasCode := ns.Get("faultCode"); hasCode {
			msg, _ := ns.Get("faultString")
			msgStr, _ := msg.(string)
			codeInt, _ := toInt(code)
			return message.FaultResponse(&message.Fault{Code: codeInt, Message: msgStr})
		}
	}
	return s.coerceReturn(result)
}

// coerceReturn normalizes a handler's polymorphic return into a Response:
// a *Response passes through, a *value.Value is wrapped as a success, and
// any other native Go value is encoded via value.FromNative first.
func (s *Server) coerceReturn(result any) *message.Response {
	switch v := result.(type) {
	case *message.Response:
		return v
	case *value.Value:
		return message.Success(v)
	case nil:
		return message.Success(value.NewNil())
	default:
		encoded, err := value.FromNative(v, s.opts.NativeEncodingOptions)
		if err != nil {
			return message.FaultResponse(message.NewFault("server_error", err.Error()))
		}
		return message.Success(encoded)
	}
}

func errorToResponse(err error) *message.Response {
	var fault *message.Fault
	if errors.As(err, &fault) {
		return message.FaultResponse(fault)
	}
	return message.FaultResponse(message.NewFault("server_error", err.Error()))
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	}
	return 0, false
}
