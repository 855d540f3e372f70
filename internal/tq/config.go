// Package tq searches for the CRF that meets a target VMAF score by encoding
// and scoring short samples.
package tq

import "strings"

const (
	// MaxIterations bounds the number of probes in one search.
	MaxIterations = 10

	// AcceptTolerance ends the search when the first probe lands this close to the target.
	AcceptTolerance = 0.5

	// MinStep is the smallest CRF distance between two probes.
	MinStep = 0.8

	// EarlyStopMargin ends the search once the best probe is in [target, target+margin].
	EarlyStopMargin = 0.3

	// MaxStale ends refinement after this many probes without a new best.
	MaxStale = 3

	// FallbackCRF is returned by InterpolateCRF with too few samples and used by
	// callers when a search fails.
	FallbackCRF = 23.0
)

// Config holds the bounds and target of one search.
type Config struct {
	// Target is the desired VMAF score.
	Target float64

	// MinCRF and MaxCRF are the encoder family's usable range.
	MinCRF float64
	MaxCRF float64

	// MaxIterations is the probe budget.
	MaxIterations int
}

// NewConfig returns a Config for encoder with the given target.
func NewConfig(encoder string, target float64) *Config {
	minCRF, maxCRF := CRFRange(encoder)
	return &Config{
		Target:        target,
		MinCRF:        minCRF,
		MaxCRF:        maxCRF,
		MaxIterations: MaxIterations,
	}
}

// Mid is the first CRF probed.
func (c *Config) Mid() float64 {
	return (c.MinCRF + c.MaxCRF) / 2
}

// CRFRange returns the usable CRF bounds for an encoder family.
func CRFRange(encoder string) (min, max float64) {
	switch {
	case strings.Contains(encoder, "libx264"), strings.Contains(encoder, "libx265"):
		return 18, 46
	case strings.Contains(encoder, "libsvtav1"):
		return 18, 54
	case strings.Contains(encoder, "nvenc"):
		return 18, 42
	case strings.Contains(encoder, "vp9"), strings.Contains(encoder, "libvpx"):
		return 18, 42
	default:
		return 1, 50
	}
}
