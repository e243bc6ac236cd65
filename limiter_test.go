package showroom

import (
	"testing"
	"time"
)

func TestLoginLimiterBlocksAfterMax(t *testing.T) {
	l := NewLoginLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Check("1.2.3.4") {
			t.Fatalf("attempt %d: expected check to pass", i+1)
		}
		l.Record("1.2.3.4")
	}

	if l.Check("1.2.3.4") {
		t.Error("expected check to fail after max attempts")
	}
}

func TestLoginLimiterCheckDoesNotRecord(t *testing.T) {
	l := NewLoginLimiter(2, time.Minute)

	for i := 0; i < 10; i++ {
		if !l.Check("1.2.3.4") {
			t.Fatal("check alone should never consume an attempt")
		}
	}
}

func TestLoginLimiterPerIP(t *testing.T) {
	l := NewLoginLimiter(1, time.Minute)

	l.Record("1.2.3.4")
	if l.Check("1.2.3.4") {
		t.Error("expected 1.2.3.4 to be blocked")
	}
	if !l.Check("5.6.7.8") {
		t.Error("expected 5.6.7.8 to be unaffected")
	}
}

func TestLoginLimiterWindowExpiry(t *testing.T) {
	l := NewLoginLimiter(1, 50*time.Millisecond)

	l.Record("1.2.3.4")
	if l.Check("1.2.3.4") {
		t.Fatal("expected block inside the window")
	}

	time.Sleep(80 * time.Millisecond)
	if !l.Check("1.2.3.4") {
		t.Error("expected the attempt to expire with the window")
	}
}
