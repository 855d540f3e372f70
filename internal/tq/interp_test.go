package tq

import (
	"math"
	"testing"
)

const epsilon = 1e-6

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestLerp(t *testing.T) {
	tests := []struct {
		name     string
		x        [2]float64
		y        [2]float64
		xi       float64
		expected float64
		wantNil  bool
	}{
		{name: "midpoint", x: [2]float64{0, 10}, y: [2]float64{0, 100}, xi: 5, expected: 50},
		{name: "at start", x: [2]float64{0, 10}, y: [2]float64{20, 40}, xi: 0, expected: 20},
		{name: "decreasing x", x: [2]float64{90, 80}, y: [2]float64{20, 30}, xi: 85, expected: 25},
		{name: "extrapolate", x: [2]float64{90, 80}, y: [2]float64{20, 30}, xi: 95, expected: 15},
		{name: "equal x", x: [2]float64{10, 10}, y: [2]float64{0, 100}, xi: 5, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Lerp(tt.x, tt.y, tt.xi)
			if tt.wantNil {
				if result != nil {
					t.Errorf("expected nil, got %v", *result)
				}
				return
			}
			if result == nil {
				t.Fatal("expected result, got nil")
			}
			if !almostEqual(*result, tt.expected, epsilon) {
				t.Errorf("Lerp() = %v, want %v", *result, tt.expected)
			}
		})
	}
}

func TestInterpolateCRF(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		target  float64
		want    float64
	}{
		{"no samples", nil, 95, FallbackCRF},
		{"one sample", []Sample{{CRF: 30, Score: 90}}, 95, FallbackCRF},
		{"bracketed", []Sample{{20, 80}, {30, 60}}, 70, 25},
		{"unsorted input", []Sample{{30, 60}, {20, 80}}, 70, 25},
		{"flat bracket uses midpoint", []Sample{{20, 80}, {30, 80.05}}, 80.02, 25},
		{"extrapolate above", []Sample{{20, 90}, {30, 80}}, 95, 15},
		{"extrapolate below", []Sample{{20, 90}, {30, 80}}, 75, 35},
		{"flat extrapolation keeps last", []Sample{{20, 90}, {30, 90.05}}, 95, 30},
		{"first bracket wins", []Sample{{18, 99}, {25, 96}, {32, 92}, {40, 85}}, 94, 28.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InterpolateCRF(tt.samples, tt.target); !almostEqual(got, tt.want, epsilon) {
				t.Errorf("InterpolateCRF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInterpolateCRFDoesNotReorderInput(t *testing.T) {
	samples := []Sample{{30, 60}, {20, 80}}
	InterpolateCRF(samples, 70)
	if samples[0].CRF != 30 {
		t.Error("InterpolateCRF must not sort the caller's slice")
	}
}
