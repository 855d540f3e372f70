package tq

import "math"

// Sample is one probed CRF and the VMAF score it produced.
type Sample struct {
	CRF   float64 `json:"crf"`
	Score float64 `json:"vmaf"`
}

// State tracks the samples of a single search.
type State struct {
	// Samples contains all scored probes in probe order.
	Samples []Sample

	// Target is the desired VMAF score.
	Target float64

	// BestCRF is the highest CRF whose score met the target; BestScore is its score.
	BestCRF   *float64
	BestScore *float64
}

// NewState creates an empty search state.
func NewState(target float64) *State {
	return &State{Samples: make([]Sample, 0, MaxIterations), Target: target}
}

// Add records a probe. It reports whether the probe became the new best.
func (s *State) Add(crf, score float64) bool {
	s.Samples = append(s.Samples, Sample{CRF: crf, Score: score})
	if score < s.Target {
		return false
	}
	if s.BestCRF != nil && crf <= *s.BestCRF {
		return false
	}
	s.BestCRF = &crf
	s.BestScore = &score
	return true
}

// TooClose reports whether crf is within MinStep of an existing sample.
func (s *State) TooClose(crf float64) bool {
	for _, p := range s.Samples {
		if math.Abs(p.CRF-crf) < MinStep {
			return true
		}
	}
	return false
}

// Settled reports whether the search can stop: either the best sample is
// just above the target, or a sample less than one CRF above the best
// already misses it.
func (s *State) Settled() bool {
	if s.BestCRF == nil {
		return false
	}
	best := *s.BestCRF
	if *s.BestScore >= s.Target && *s.BestScore <= s.Target+EarlyStopMargin {
		return true
	}
	for _, p := range s.Samples {
		if p.CRF >= best && p.CRF <= best+1 && p.Score < s.Target {
			return true
		}
	}
	return false
}

// Result chooses the final CRF. A sample meeting the target with the
// smallest overshoot wins; otherwise the sample closest to the target.
// ok is false when there are no samples.
func (s *State) Result() (crf, score float64, ok bool) {
	var above, closest *Sample
	for i := range s.Samples {
		p := &s.Samples[i]
		diff := math.Abs(p.Score - s.Target)
		if p.Score >= s.Target && (above == nil || diff < math.Abs(above.Score-s.Target)) {
			above = p
		}
		if closest == nil || diff < math.Abs(closest.Score-s.Target) {
			closest = p
		}
	}
	switch {
	case above != nil:
		return above.CRF, above.Score, true
	case closest != nil:
		return closest.CRF, closest.Score, true
	}
	return 0, 0, false
}
