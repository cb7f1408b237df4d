package booking

import (
	"testing"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/domain"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusInProgress, false},
		{StatusPending, StatusCompleted, false},
		{StatusAccepted, StatusInProgress, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusAccepted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusCompleted, StatusCompleted, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestApplyTransitionStampsTimes(t *testing.T) {
	now := time.Now()
	b := &Booking{ID: "b1", Status: StatusPending}

	if err := ApplyTransition(b, StatusAccepted, now); err != nil {
		t.Fatalf("ApplyTransition to accepted: %v", err)
	}
	if b.StartedAt != nil {
		t.Fatalf("accepted should not stamp started_at")
	}

	if err := ApplyTransition(b, StatusInProgress, now.Add(time.Minute)); err != nil {
		t.Fatalf("ApplyTransition to in_progress: %v", err)
	}
	if b.StartedAt == nil {
		t.Fatalf("in_progress should stamp started_at")
	}

	if err := ApplyTransition(b, StatusCompleted, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("ApplyTransition to completed: %v", err)
	}
	if b.CompletedAt == nil {
		t.Fatalf("completed should stamp completed_at")
	}
	if b.CompletedAt.Before(*b.StartedAt) {
		t.Fatalf("completed_at %v before started_at %v", b.CompletedAt, b.StartedAt)
	}
}

func TestApplyTransitionRejectsInvalid(t *testing.T) {
	b := &Booking{ID: "b1", Status: StatusCompleted}
	err := ApplyTransition(b, StatusCancelled, time.Now())
	if err == nil {
		t.Fatalf("expected error for completed -> cancelled")
	}
	if !domain.IsInvalidTransition(err) {
		t.Fatalf("expected InvalidTransitionError, got %T", err)
	}
	if b.Status != StatusCompleted {
		t.Fatalf("booking mutated on rejected transition: %s", b.Status)
	}
}

func TestRankMonotonic(t *testing.T) {
	order := []Status{StatusPending, StatusAccepted, StatusInProgress, StatusCompleted}
	for i := 1; i < len(order); i++ {
		if Rank(order[i]) <= Rank(order[i-1]) {
			t.Errorf("Rank(%s) should be greater than Rank(%s)", order[i], order[i-1])
		}
	}
	// 两个终态互不覆盖
	if Rank(StatusCompleted) != Rank(StatusCancelled) {
		t.Errorf("terminal states should share a rank")
	}
	if Rank(Status("bogus")) != 0 {
		t.Errorf("unknown status should rank 0")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAccepted, StatusInProgress} {
		if IsTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []Status{StatusCompleted, StatusCancelled} {
		if !IsTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
}
