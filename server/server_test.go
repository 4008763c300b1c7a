package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glensc/xmlrpc-go/message"
	"github.com/glensc/xmlrpc-go/value"
)

func TestRegisterRejectsSystemPrefix(t *testing.T) {
	svr := New()
	_, err := svr.Register("system.foo")
	if !errors.Is(err, ErrReservedName) {
		t.Fatalf("Register() error = %v, want ErrReservedName", err)
	}
}

func TestExecuteTypedValueConvention(t *testing.T) {
	svr := New()
	err := svr.RegisterTyped("examples.add", func(_ context.Context, req *message.Request) (any, error) {
		a, _ := req.Params[0].Int()
		b, _ := req.Params[1].Int()
		return value.NewInt(a + b), nil
	})
	if err != nil {
		t.Fatalf("RegisterTyped: %v", err)
	}

	resp := svr.Execute(context.Background(), &message.Request{
		Method: "examples.add",
		Params: []*value.Value{value.NewInt(2), value.NewInt(3)},
	})
	if resp.IsFault() {
		t.Fatalf("unexpected fault: %v", resp.Fault)
	}
	got, _ := resp.Value.Int()
	if got != 5 {
		t.Fatalf("result = %d, want 5", got)
	}
}

func TestExecuteNativeValueConvention(t *testing.T) {
	svr := New()
	err := svr.RegisterNative("examples.concat", func(_ context.Context, params []any) (any, error) {
		a := params[0].(string)
		b := params[1].(string)
		return a + b, nil
	})
	if err != nil {
		t.Fatalf("RegisterNative: %v", err)
	}

	resp := svr.Execute(context.Background(), &message.Request{
		Method: "examples.concat",
		Params: []*value.Value{value.NewString("foo"), value.NewString("bar")},
	})
	if resp.IsFault() {
		t.Fatalf("unexpected fault: %v", resp.Fault)
	}
	got, _ := resp.Value.Str()
	if got != "foobar" {
		t.Fatalf("result = %q, want foobar", got)
	}
}

func TestExecuteEpiConvention(t *testing.T) {
	svr := New(WithUserData("secret"))
	err := svr.RegisterEpi("examples.whoami", func(_ context.Context, _ string, _ []any, userData any) (any, error) {
		return userData.(string), nil
	})
	if err != nil {
		t.Fatalf("RegisterEpi: %v", err)
	}

	resp := svr.Execute(context.Background(), &message.Request{Method: "examples.whoami"})
	if resp.IsFault() {
		t.Fatalf("unexpected fault: %v", resp.Fault)
	}
	got, _ := resp.Value.Str()
	if got != "secret" {
		t.Fatalf("result = %q, want secret", got)
	}
}

func TestExecuteEpiFaultConvention(t *testing.T) {
	svr := New()
	err := svr.RegisterEpi("examples.boom", func(_ context.Context, _ string, _ []any, _ any) (any, error) {
		return value.NativeStruct{
			{Name: "faultCode", Value: 42},
			{Name: "faultString", Value: "boom"},
		}, nil
	})
	if err != nil {
		t.Fatalf("RegisterEpi: %v", err)
	}

	resp := svr.Execute(context.Background(), &message.Request{Method: "examples.boom"})
	if !resp.IsFault() {
		t.Fatal("expected fault")
	}
	if resp.Fault.Code != 42 || resp.Fault.Message != "boom" {
		t.Fatalf("fault = %+v", resp.Fault)
	}
}

func TestExecuteUnknownMethodFaults(t *testing.T) {
	svr := New()
	resp := svr.Execute(context.Background(), &message.Request{Method: "nope"})
	if !resp.IsFault() || resp.Fault.Code != -32601 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestExecuteHandlerErrorBecomesFault(t *testing.T) {
	svr := New()
	_ = svr.RegisterTyped("examples.fail", func(_ context.Context, _ *message.Request) (any, error) {
		return nil, errors.New("kaboom")
	})
	resp := svr.Execute(context.Background(), &message.Request{Method: "examples.fail"})
	if !resp.IsFault() || resp.Fault.Message != "kaboom" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestExecuteHandlerTimeout(t *testing.T) {
	svr := New(WithHandlerTimeout(10 * time.Millisecond))
	_ = svr.RegisterTyped("examples.slow", func(ctx context.Context, _ *message.Request) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	resp := svr.Execute(context.Background(), &message.Request{Method: "examples.slow"})
	if !resp.IsFault() || resp.Fault.Message != "request timed out" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestExecuteRateLimit(t *testing.T) {
	svr := New(WithRateLimit(1, 1))
	_ = svr.RegisterTyped("examples.ping", func(_ context.Context, _ *message.Request) (any, error) {
		return value.NewString("pong"), nil
	})
	first := svr.Execute(context.Background(), &message.Request{Method: "examples.ping"})
	if first.IsFault() {
		t.Fatalf("first call unexpectedly faulted: %v", first.Fault)
	}
	second := svr.Execute(context.Background(), &message.Request{Method: "examples.ping"})
	if !second.IsFault() || second.Fault.Message != "rate limit exceeded" {
		t.Fatalf("second call = %+v, want rate limit fault", second)
	}
}

func TestExecuteSignatureMismatchFaults(t *testing.T) {
	svr := New()
	_ = svr.RegisterTyped("examples.typed", func(_ context.Context, _ *message.Request) (any, error) {
		return value.NewInt(1), nil
	}, message.WithSignatures([]value.Tag{value.TagInt, value.TagInt}))

	resp := svr.Execute(context.Background(), &message.Request{
		Method: "examples.typed",
		Params: []*value.Value{value.NewString("nope")},
	})
	if !resp.IsFault() || resp.Fault.Code != -32602 {
		t.Fatalf("resp = %+v", resp)
	}
}
