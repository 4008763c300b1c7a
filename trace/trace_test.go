package trace

import (
	"context"
	"testing"
)

func TestSinkAccumulatesInOrder(t *testing.T) {
	s := NewSink()
	s.Logf("first")
	s.Logf("second %d", 2)
	s.Warnf("careful")

	if got := s.Messages(); len(got) != 2 || got[0] != "first" || got[1] != "second 2" {
		t.Fatalf("Messages() = %v", got)
	}
	if got := s.Warnings(); len(got) != 1 || got[0] != "careful" {
		t.Fatalf("Warnings() = %v", got)
	}
}

func TestNilSinkIsSafe(t *testing.T) {
	var s *Sink
	s.Logf("ignored")
	s.Warnf("ignored")
	if got := s.Messages(); got != nil {
		t.Fatalf("Messages() on nil sink = %v, want nil", got)
	}
}

func TestWithSinkRoundTrip(t *testing.T) {
	s := NewSink()
	ctx := WithSink(context.Background(), s)
	if got := FromContext(ctx); got != s {
		t.Fatalf("FromContext() = %v, want %v", got, s)
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("FromContext() on bare context = %v, want nil", got)
	}
}

func TestWithGlobalHookRestoresPrevious(t *testing.T) {
	outer := NewSink()
	WithGlobalHook(outer, func() {
		ReportWarning("outer warning")

		inner := NewSink()
		WithGlobalHook(inner, func() {
			ReportWarning("inner warning")
		})

		ReportWarning("outer again")
	})

	if got := outer.Warnings(); len(got) != 2 || got[0] != "outer warning" || got[1] != "outer again" {
		t.Fatalf("outer.Warnings() = %v", got)
	}
}

func TestReportWarningWithNoHookIsNoop(t *testing.T) {
	ReportWarning("nobody is listening")
}
