package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	b := NoopBatchHooks{}
	b.OnDrawingStart(ctx, "plan.json")
	b.OnDrawingComplete(ctx, "plan.json", 3, time.Second, nil)
	b.OnDrawingComplete(ctx, "plan.json", 0, time.Second, errors.New("locked"))
	b.OnPageComplete(ctx, "plan_01.pdf", "plotted", time.Second)

	c := NoopCacheHooks{}
	c.OnFresh(ctx, "plan_01.pdf")
	c.OnStale(ctx, "plan_02.pdf", "fingerprint")
	c.OnHeal(ctx, "plan_03.pdf")

	s := NoopServerHooks{}
	s.OnRequest(ctx, "GET", "/api/v1/records", 200, time.Millisecond)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Batch().(NoopBatchHooks); !ok {
		t.Error("Batch() should return NoopBatchHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Server().(NoopServerHooks); !ok {
		t.Error("Server() should return NoopServerHooks by default")
	}

	customBatch := &testBatchHooks{}
	SetBatchHooks(customBatch)
	if Batch() != customBatch {
		t.Error("SetBatchHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customServer := &testServerHooks{}
	SetServerHooks(customServer)
	if Server() != customServer {
		t.Error("SetServerHooks should set custom hooks")
	}

	Reset()
	if _, ok := Batch().(NoopBatchHooks); !ok {
		t.Error("Reset() should restore NoopBatchHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testBatchHooks{}
	SetBatchHooks(custom)
	SetBatchHooks(nil)

	if Batch() != custom {
		t.Error("SetBatchHooks(nil) should be ignored")
	}
}

type testBatchHooks struct{ NoopBatchHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testServerHooks struct{ NoopServerHooks }
