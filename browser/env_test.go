package browser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestScript(t *testing.T) {
	expr, err := script("id, pos, text", "return true;", "c1", 3, "a\"b\n")
	if err != nil {
		t.Fatalf("script() error = %v", err)
	}
	if !strings.HasPrefix(expr, "(function(id, pos, text) {\n") {
		t.Errorf("unexpected expression head:\n%s", expr)
	}
	if !strings.Contains(expr, prelude) {
		t.Error("expression must include prelude")
	}
	// arguments are JSON literals, never spliced into code
	if !strings.HasSuffix(expr, `})("c1", 3, "a\"b\n")`) {
		t.Errorf("unexpected arguments:\n%s", expr)
	}
}

func TestScript_NoArgs(t *testing.T) {
	expr, err := script("", "return 1;")
	if err != nil {
		t.Fatalf("script() error = %v", err)
	}
	if !strings.HasSuffix(expr, "return 1;\n})()") {
		t.Errorf("unexpected expression:\n%s", expr)
	}
}

func TestScript_BadArgument(t *testing.T) {
	if _, err := script("f", "return f;", func() {}); err == nil {
		t.Error("expected error for argument which cannot be encoded")
	}
}

func TestNew_NilLogger(t *testing.T) {
	if e := New(context.Background(), nil); e.log == nil {
		t.Error("New() must substitute nop logger")
	}
}

func TestCallContext(t *testing.T) {
	e := New(context.Background(), nil)
	ctx, cancel := e.callContext()
	if _, ok := ctx.Deadline(); ok {
		t.Error("call context without timeout must not have deadline")
	}
	cancel()

	e.timeout = time.Second
	before := time.Now()
	ctx, cancel = e.callContext()
	defer cancel()
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("call context must have deadline")
	}
	if d := deadline.Sub(before); d <= 0 || d > time.Second {
		t.Errorf("deadline is %v away, want at most 1s", d)
	}
	// every call gets its own budget, session context is never bounded
	if _, ok := e.ctx.Deadline(); ok {
		t.Error("session context must not have deadline")
	}
}

func TestCallContext_Expired(t *testing.T) {
	e := New(context.Background(), nil)
	e.timeout = time.Nanosecond
	ctx, cancel := e.callContext()
	defer cancel()
	<-ctx.Done()
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Errorf("ctx.Err() = %v, want deadline exceeded", ctx.Err())
	}
	if e.ctx.Err() != nil {
		t.Errorf("expired call ended session: %v", e.ctx.Err())
	}
}
