package booking

import "testing"

func TestBoundedRandomETAWithinRange(t *testing.T) {
	p := NewBoundedRandomETA(5, 15)
	for i := 0; i < 1000; i++ {
		got := p.Estimate(nil, nil)
		if got < 5 || got > 15 {
			t.Fatalf("estimate %d out of [5, 15]", got)
		}
	}
}

func TestBoundedRandomETAFallback(t *testing.T) {
	p := NewBoundedRandomETA(0, -1)
	if p.MinMinutes != 5 || p.MaxMinutes != 15 {
		t.Fatalf("expected fallback to 5-15, got %d-%d", p.MinMinutes, p.MaxMinutes)
	}
}

func TestFixedETA(t *testing.T) {
	if got := FixedETA(7).Estimate(nil, nil); got != 7 {
		t.Fatalf("FixedETA(7) = %d", got)
	}
}
