package middleware

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketExhausts(t *testing.T) {
	tb := NewTokenBucket(3, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !tb.Allow(ctx) {
			t.Fatalf("request %d should pass", i)
		}
	}
	if tb.Allow(ctx) {
		t.Fatalf("bucket should be empty")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(1, 100)
	ctx := context.Background()

	if !tb.Allow(ctx) {
		t.Fatalf("first request should pass")
	}
	time.Sleep(50 * time.Millisecond)
	if !tb.Allow(ctx) {
		t.Fatalf("bucket should refill over time")
	}
}

func TestSlidingWindowLimits(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, 2)
	ctx := context.Background()

	if !sw.Allow(ctx) || !sw.Allow(ctx) {
		t.Fatalf("first two requests should pass")
	}
	if sw.Allow(ctx) {
		t.Fatalf("third request in window should be rejected")
	}
}

func TestSlidingWindowExpiry(t *testing.T) {
	sw := NewSlidingWindow(20*time.Millisecond, 1)
	ctx := context.Background()

	if !sw.Allow(ctx) {
		t.Fatalf("first request should pass")
	}
	time.Sleep(30 * time.Millisecond)
	if !sw.Allow(ctx) {
		t.Fatalf("request after window expiry should pass")
	}
}
