package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/glensc/xmlrpc-go/message"
	"github.com/glensc/xmlrpc-go/value"
)

func echoHandler(_ context.Context, req *message.Request) *message.Response {
	return message.Success(value.NewString(req.Method))
}

func slowHandler(ctx context.Context, req *message.Request) *message.Response {
	select {
	case <-time.After(200 * time.Millisecond):
		return message.Success(value.NewString(req.Method))
	case <-ctx.Done():
		return message.FaultResponse(message.NewFault("server_error", "cancelled"))
	}
}

func TestChainAppliesInOrder(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *message.Request) *message.Response {
				order = append(order, name+":before")
				resp := next(ctx, req)
				order = append(order, name+":after")
				return resp
			}
		}
	}

	handler := Chain(trace("A"), trace("B"))(echoHandler)
	handler(context.Background(), &message.Request{Method: "m"})

	want := []string{"A:before", "B:before", "B:after", "A:after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestTimeoutPassesThroughFastHandler(t *testing.T) {
	handler := Timeout(500 * time.Millisecond)(echoHandler)
	resp := handler(context.Background(), &message.Request{Method: "m"})
	if resp.IsFault() {
		t.Fatalf("unexpected fault: %v", resp.Fault)
	}
}

func TestTimeoutExceeded(t *testing.T) {
	handler := Timeout(10 * time.Millisecond)(slowHandler)
	resp := handler(context.Background(), &message.Request{Method: "m"})
	if !resp.IsFault() || resp.Fault.Message != "request timed out" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestTimeoutZeroDisables(t *testing.T) {
	handler := Timeout(0)(echoHandler)
	resp := handler(context.Background(), &message.Request{Method: "m"})
	if resp.IsFault() {
		t.Fatalf("unexpected fault: %v", resp.Fault)
	}
}

func TestRateLimitAllowsThenBlocks(t *testing.T) {
	handler := RateLimit(1, 2)(echoHandler)
	req := &message.Request{Method: "m"}

	for i := 0; i < 2; i++ {
		resp := handler(context.Background(), req)
		if resp.IsFault() {
			t.Fatalf("call %d: unexpected fault: %v", i, resp.Fault)
		}
	}
	resp := handler(context.Background(), req)
	if !resp.IsFault() || resp.Fault.Message != "rate limit exceeded" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestRecoverWrapAsServerError(t *testing.T) {
	panicky := func(context.Context, *message.Request) *message.Response { panic("boom") }
	handler := Recover(WrapAsServerError)(panicky)
	resp := handler(context.Background(), &message.Request{Method: "m"})
	if !resp.IsFault() || resp.Fault.Code != -32603 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestRecoverWrapWithExceptionCodeAndMessagePropagatesFault(t *testing.T) {
	panicky := func(context.Context, *message.Request) *message.Response {
		panic(message.NewFault("server_error", "custom"))
	}
	handler := Recover(WrapWithExceptionCodeAndMessage)(panicky)
	resp := handler(context.Background(), &message.Request{Method: "m"})
	if !resp.IsFault() || resp.Fault.Message != "custom" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestRecoverPropagateRepanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic to propagate")
		}
	}()
	panicky := func(context.Context, *message.Request) *message.Response { panic("boom") }
	handler := Recover(Propagate)(panicky)
	handler(context.Background(), &message.Request{Method: "m"})
}
