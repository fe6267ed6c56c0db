package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Repack hooks
	r := NoopRepackHooks{}
	r.OnImportStart(ctx, 100)
	r.OnImportComplete(ctx, 100, time.Second, nil)
	r.OnSortStart(ctx, "kahn", 100)
	r.OnSortComplete(ctx, "kahn", time.Second, nil)
	r.OnEmitStart(ctx, 100)
	r.OnEmitComplete(ctx, 4096, 0, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "artifact")
	c.OnCacheMiss(ctx, "report")
	c.OnCacheSet(ctx, "artifact", 1024)

	// Serve hooks
	s := NoopServeHooks{}
	s.OnRequest(ctx, "POST", "/repack")
	s.OnResponse(ctx, "POST", "/repack", 200, time.Second)
}

type testRepackHooks struct {
	NoopRepackHooks
	sorts int
}

func (h *testRepackHooks) OnSortStart(ctx context.Context, algorithm string, n int) {
	h.sorts++
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Repack().(NoopRepackHooks); !ok {
		t.Error("Repack() should return NoopRepackHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Serve().(NoopServeHooks); !ok {
		t.Error("Serve() should return NoopServeHooks by default")
	}

	// Set custom hooks
	custom := &testRepackHooks{}
	SetRepackHooks(custom)
	Repack().OnSortStart(context.Background(), "kahn", 3)
	if custom.sorts != 1 {
		t.Errorf("custom hook called %d times, want 1", custom.sorts)
	}

	// Nil registration keeps current hooks
	SetRepackHooks(nil)
	if Repack() != RepackHooks(custom) {
		t.Error("SetRepackHooks(nil) should keep the current hooks")
	}

	// Reset restores noop
	Reset()
	if _, ok := Repack().(NoopRepackHooks); !ok {
		t.Error("Reset() should restore NoopRepackHooks")
	}
}
