package utils

import "testing"

func TestRandSourceDeterministic(t *testing.T) {
	a := NewRandSource(42)
	b := NewRandSource(42)
	for i := 0; i < 20; i++ {
		if a.Intn(100) != b.Intn(100) {
			t.Fatalf("expected identical sequences for identical seeds at draw %d", i)
		}
	}
}

func TestRandSourceRanges(t *testing.T) {
	r := NewRandSource(7)
	for i := 0; i < 1000; i++ {
		if f := r.Float64(); f < 0 || f >= 1 {
			t.Fatalf("Float64 out of range: %v", f)
		}
		if n := r.Intn(4); n < 0 || n >= 4 {
			t.Fatalf("Intn out of range: %v", n)
		}
		if u := r.UniformFloat64(5, 6); u < 5 || u >= 6 {
			t.Fatalf("UniformFloat64 out of range: %v", u)
		}
	}
}
