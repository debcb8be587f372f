package services

import (
	"math"
	"testing"
)

func TestL2Distance(t *testing.T) {
	if got := l2Distance([]float64{0, 0}, []float64{3, 4}); got != 5 {
		t.Fatalf("expected distance 5, got %v", got)
	}
	if got := l2Distance([]float64{1, 2, 3}, []float64{1, 2, 3}); got != 0 {
		t.Fatalf("expected distance 0, got %v", got)
	}
}

func TestL2Distance_DimensionMismatchPenalized(t *testing.T) {
	same := l2Distance([]float64{1, 1}, []float64{1, 1})
	shorter := l2Distance([]float64{1, 1}, []float64{1})
	if !(shorter > same) {
		t.Fatalf("expected mismatch penalty, got %v vs %v", shorter, same)
	}
	if math.IsNaN(shorter) {
		t.Fatalf("distance must not be NaN")
	}
}
