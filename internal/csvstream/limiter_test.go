package csvstream

import (
	"testing"

	"github.com/google/uuid"
)

func TestLimiterAcquireUpToCap(t *testing.T) {
	l := NewLimiter(2)
	user := uuid.New()

	g1, err := l.Acquire(user)
	if err != nil {
		t.Fatalf("expected first acquire to succeed, got %v", err)
	}
	if _, err := l.Acquire(user); err != nil {
		t.Fatalf("expected second acquire to succeed, got %v", err)
	}
	if _, err := l.Acquire(user); err == nil {
		t.Fatal("expected third acquire to be rejected at the cap")
	}

	g1.Release()
	if _, err := l.Acquire(user); err != nil {
		t.Fatalf("expected acquire to succeed after a release, got %v", err)
	}
}

func TestLimiterIsPerUser(t *testing.T) {
	l := NewLimiter(1)
	a, b := uuid.New(), uuid.New()

	if _, err := l.Acquire(a); err != nil {
		t.Fatalf("expected user a to acquire, got %v", err)
	}
	if _, err := l.Acquire(b); err != nil {
		t.Fatalf("expected user b's stream cap to be independent of user a, got %v", err)
	}
}

func TestLimiterReleaseIsIdempotentSafe(t *testing.T) {
	l := NewLimiter(1)
	user := uuid.New()
	g, err := l.Acquire(user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g.Release()

	g2, err := l.Acquire(user)
	if err != nil {
		t.Fatalf("expected acquire after a release to succeed, got %v", err)
	}
	defer g2.Release()

	// A second Release of the same guard must not free g2's slot.
	g.Release()
	if _, err := l.Acquire(user); err == nil {
		t.Fatal("expected the cap to stay enforced after a repeated Release")
	}

	var zero Guard
	zero.Release()
}
