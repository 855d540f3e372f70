package tq

import (
	"cmp"
	"math"
	"slices"
)

// flatScore is the score difference below which two samples are treated
// as equal when interpolating.
const flatScore = 0.1

// Lerp evaluates the line through (x[0], y[0]) and (x[1], y[1]) at xi.
// Returns nil if the points share an x coordinate.
func Lerp(x, y [2]float64, xi float64) *float64 {
	if x[1] == x[0] {
		return nil
	}

	t := (xi - x[0]) / (x[1] - x[0])
	result := t*(y[1]-y[0]) + y[0]
	return &result
}

// InterpolateCRF predicts the CRF that scores target. Samples are ordered by
// CRF and the first adjacent pair bracketing the target is interpolated;
// when none does, the line through the two highest-CRF samples is
// extrapolated. Fewer than two samples yield FallbackCRF.
func InterpolateCRF(samples []Sample, target float64) float64 {
	if len(samples) < 2 {
		return FallbackCRF
	}

	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b Sample) int {
		return cmp.Compare(a.CRF, b.CRF)
	})

	for i := 0; i < len(sorted)-1; i++ {
		a, b := sorted[i], sorted[i+1]
		lo, hi := min(a.Score, b.Score), max(a.Score, b.Score)
		if target < lo || target > hi {
			continue
		}
		if math.Abs(b.Score-a.Score) < flatScore {
			return (a.CRF + b.CRF) / 2
		}
		return *Lerp([2]float64{a.Score, b.Score}, [2]float64{a.CRF, b.CRF}, target)
	}

	a, b := sorted[len(sorted)-2], sorted[len(sorted)-1]
	if math.Abs(b.Score-a.Score) < flatScore {
		return b.CRF
	}
	return *Lerp([2]float64{a.Score, b.Score}, [2]float64{a.CRF, b.CRF}, target)
}

// clamp restricts a value to the range [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
