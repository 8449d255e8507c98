package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("expected unit norm, got %f", sum)
	}
}

func TestNormalizeL2Zero(t *testing.T) {
	v := []float32{0, 0}
	NormalizeL2(v)
	if v[0] != 0 || v[1] != 0 {
		t.Error("zero vector should be unchanged")
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-0.5) != 0 {
		t.Error("negative should clamp to 0")
	}
	if Clamp01(1.5) != 1 {
		t.Error("above 1 should clamp to 1")
	}
	if Clamp01(0.42) != 0.42 {
		t.Error("in-range value should be unchanged")
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	if p := Percentile(values, 50); p != 50 {
		t.Errorf("p50 should be 50, got %f", p)
	}
	if p := Percentile(values, 95); p != 100 {
		t.Errorf("p95 of 10 values should be 100 (nearest rank), got %f", p)
	}
	if p := Percentile(nil, 50); p != 0 {
		t.Errorf("empty input should return 0, got %f", p)
	}
}

func TestMean(t *testing.T) {
	if m := Mean([]float64{1, 2, 3}); m != 2 {
		t.Errorf("mean should be 2, got %f", m)
	}
	if m := Mean(nil); m != 0 {
		t.Errorf("empty mean should be 0, got %f", m)
	}
}
