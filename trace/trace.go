// Package trace implements the debug-trace accumulator described as C8 in
// SPEC_FULL.md: a per-request diagnostics sink carried through
// context.Context, plus the one deliberately-scoped piece of process-wide
// state needed to support legacy handlers that report warnings through a
// global hook instead of a return value.
package trace

import (
	"context"
	"fmt"
	"sync"
)

// Sink accumulates trace lines for a single request. It is never shared
// across requests and is always reached through context, never a package
// variable — see SPEC_FULL.md §5 and §9.
type Sink struct {
	mu       sync.Mutex
	messages []string
	warnings []string
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Logf records a trace line (Debug >= 1 material); the driver emits
// these base64-encoded in the SYSTEM DEBUG comment.
func (s *Sink) Logf(format string, args ...any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, sprintf(format, args...))
}

// Warnf records a captured warning/notice (Debug >= 3 material).
func (s *Sink) Warnf(format string, args ...any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, sprintf(format, args...))
}

// Messages returns the lines recorded by Logf, in order.
func (s *Sink) Messages() []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}

// Warnings returns the accumulated captured warnings, in order.
func (s *Sink) Warnings() []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}

type ctxKey struct{}

// WithSink attaches sink to ctx for downstream handlers to record into.
func WithSink(ctx context.Context, sink *Sink) context.Context {
	return context.WithValue(ctx, ctxKey{}, sink)
}

// FromContext retrieves the Sink attached by WithSink, or nil if none was
// attached — callers use the nil-safe methods above rather than checking.
func FromContext(ctx context.Context) *Sink {
	sink, _ := ctx.Value(ctxKey{}).(*Sink)
	return sink
}

var (
	globalMu   sync.Mutex
	globalHook func(format string, args ...any)
)

// installGlobalHook reassigns the process-wide legacy warning hook for the
// duration of one Debug>=3 call and returns the previous hook so the
// caller can restore it, even if the handler itself reassigned the hook
// while running. Guarded by globalMu so only one call at a time holds the
// process-wide hook.
func installGlobalHook(sink *Sink) (prev func(format string, args ...any)) {
	globalMu.Lock()
	defer globalMu.Unlock()
	prev = globalHook
	globalHook = sink.Warnf
	return prev
}

// restoreGlobalHook puts back whatever hook was installed before
// installGlobalHook ran.
func restoreGlobalHook(prev func(format string, args ...any)) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalHook = prev
}

// WithGlobalHook runs fn with the process-wide legacy warning hook
// temporarily pointed at sink, restoring the prior hook afterward. This is
// the only process-wide mutable state in the engine (SPEC_FULL.md §5/§9);
// everything else flows through context.
func WithGlobalHook(sink *Sink, fn func()) {
	prev := installGlobalHook(sink)
	defer restoreGlobalHook(prev)
	fn()
}

// ReportWarning invokes the currently-installed global hook, if any. It is
// the legacy-compatibility entry point for code that cannot accept a
// context.Context and instead expects to call into a global diagnostics
// facility (mirrors the historical PHP engine's global warning capture
// this design is informed by).
func ReportWarning(format string, args ...any) {
	globalMu.Lock()
	hook := globalHook
	globalMu.Unlock()
	if hook != nil {
		hook(format, args...)
	}
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
