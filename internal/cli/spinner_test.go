package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsMessage(t *testing.T) {
	var out syncBuffer
	s := newSpinner("Checking drawings...")
	s.w = &out
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.SetMessage("[%d/%d] %s", 1, 3, "plan.json")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	got := out.String()
	if !strings.Contains(got, "Checking drawings...") || !strings.Contains(got, "[1/3] plan.json") {
		t.Errorf("spinner output = %q", got)
	}
	if !strings.HasSuffix(got, "\r") {
		t.Errorf("line not cleared: %q", got)
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Testing with context...")
	s.w = &syncBuffer{}
	s.Start()
	cancel()

	// Give goroutine time to notice cancellation
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("Testing idempotent stop...")
	s.w = &syncBuffer{}
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}
