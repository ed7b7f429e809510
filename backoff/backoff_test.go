package backoff

import (
	"testing"
	"time"
)

func TestConstant(t *testing.T) {
	c := NewConstant(5 * time.Second)
	for _, attempt := range []int{1, 2, 10} {
		if got := c.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want 5s", attempt, got)
		}
	}
}

func TestExponential(t *testing.T) {
	e := NewExponential(time.Second, time.Minute)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{7, 60 * time.Second}, // 64s capped at 60s
		{20, 60 * time.Second},
	}

	for _, tt := range tests {
		if got := e.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_NoCap(t *testing.T) {
	e := NewExponential(time.Second, 0)
	if got := e.Delay(10); got != 512*time.Second {
		t.Errorf("Delay(10) = %v, want 512s", got)
	}
}

func TestExponentialWithJitter_Bounds(t *testing.T) {
	e := NewExponentialWithJitter(time.Second, 30*time.Second)

	for attempt := 1; attempt <= 10; attempt++ {
		for range 100 {
			d := e.Delay(attempt)
			if d < 0 {
				t.Fatalf("Delay(%d) = %v, negative", attempt, d)
			}
			if d > 30*time.Second {
				t.Fatalf("Delay(%d) = %v, exceeds cap", attempt, d)
			}
		}
	}
}

func TestDefaultStrategy(t *testing.T) {
	s := DefaultStrategy()
	if got := s.Delay(1); got != 30*time.Second {
		t.Errorf("Delay(1) = %v, want 30s", got)
	}
	if got := s.Delay(2); got != time.Minute {
		t.Errorf("Delay(2) = %v, want 1m", got)
	}
	if got := s.Delay(10); got != 10*time.Minute {
		t.Errorf("Delay(10) = %v, want capped 10m", got)
	}
}
