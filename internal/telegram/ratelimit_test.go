package telegram

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_Wait(t *testing.T) {
	rl := NewRateLimiter(100, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
}

func TestRateLimiter_FloodWait(t *testing.T) {
	rl := NewRateLimiter(100, 1)
	rl.SetFloodWait(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// the flood pause outlives the context, Wait must give up
	if err := rl.Wait(ctx); err == nil {
		t.Error("Wait() should fail when flood wait exceeds the context deadline")
	}
}

func TestRateLimiter_CancelledContext(t *testing.T) {
	rl := NewRateLimiter(0.1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("Wait() should fail on a cancelled context")
	}
}
