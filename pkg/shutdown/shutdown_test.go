package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestShutdownRunsAllHandlers(t *testing.T) {
	m := NewManager()
	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		m.OnShutdown(func(context.Context) { ran.Add(1) })
	}

	m.Shutdown(context.Background())
	if got := ran.Load(); got != 3 {
		t.Fatalf("handlers ran=%d want=3", got)
	}
}

func TestShutdownHonorsDeadline(t *testing.T) {
	m := NewManager()
	release := make(chan struct{})
	m.OnShutdown(func(context.Context) { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.Shutdown(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown must return once the context expires")
	}
}
