package randutil

import "testing"

func TestNewIsDeterministic(t *testing.T) {
	a, b := New(99), New(99)
	for i := 0; i < 20; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("draw %d differs: %d != %d", i, x, y)
		}
	}
}

func TestLockedIntnRange(t *testing.T) {
	l := NewLocked(New(1))
	for i := 0; i < 1000; i++ {
		if v := l.Intn(10); v < 0 || v >= 10 {
			t.Fatalf("value out of range: %d", v)
		}
	}
}
