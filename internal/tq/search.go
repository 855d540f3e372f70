package tq

import (
	"context"
	"math"
	"slices"

	"github.com/five82/vcompress/internal/errors"
	"github.com/five82/vcompress/internal/logging"
)

// Prober encodes a sample at crf and scores it. ok is false when no score
// could be produced; the search treats that as a missing sample.
type Prober interface {
	Probe(ctx context.Context, crf float64) (score float64, ok bool)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, crf float64) (float64, bool)

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, crf float64) (float64, bool) {
	return f(ctx, crf)
}

// Progress is reported before each probe (Score is 0) and after each
// scored probe.
type Progress struct {
	Iteration     int
	MaxIterations int
	CRF           float64
	Score         float64
	Target        float64
	BestCRF       *float64
	BestScore     *float64
	Samples       []Sample
}

// Result is the outcome of a search.
type Result struct {
	CRF     float64
	Score   float64
	Samples []Sample
}

// Option configures a search.
type Option func(*searcher)

// WithCancelCheck polls fn before every probe.
func WithCancelCheck(fn func() bool) Option {
	return func(s *searcher) { s.cancelled = fn }
}

// WithProgress receives a Progress around every probe.
func WithProgress(fn func(Progress)) Option {
	return func(s *searcher) { s.progress = fn }
}

type searcher struct {
	cfg       *Config
	prober    Prober
	state     *State
	cancelled func() bool
	progress  func(Progress)
}

// Search finds the highest CRF whose sample meets cfg.Target.
//
// The midpoint of the family range is probed first and accepted when it is
// within AcceptTolerance. Otherwise the range is halved toward the target
// and narrowed with interpolated probes. If that does not settle, a
// refinement phase keeps interpolating over the full family range until
// MaxStale probes in a row fail to improve the best CRF.
//
// A cancelled search returns an error matching errors.IsCancelled. Search
// never fails otherwise: without any samples it returns the midpoint with a
// zero score.
func Search(ctx context.Context, cfg *Config, prober Prober, opts ...Option) (Result, error) {
	s := &searcher{
		cfg:       cfg,
		prober:    prober,
		state:     NewState(cfg.Target),
		cancelled: func() bool { return false },
		progress:  func(Progress) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	if c, ok := prober.(interface{ Cleanup() }); ok {
		defer c.Cleanup()
	}
	return s.run(ctx)
}

func (s *searcher) run(ctx context.Context) (Result, error) {
	cfg := s.cfg
	target := cfg.Target
	mid := cfg.Mid()
	curMin, curMax := cfg.MinCRF, cfg.MaxCRF
	iteration := 1
	settled := false

	if s.isCancelled(ctx) {
		return Result{}, errors.NewCancelledError()
	}

	if score, ok := s.probe(ctx, iteration, mid); ok {
		if math.Abs(score-target) <= AcceptTolerance {
			logging.Debug("midpoint accepted", "crf", mid, "vmaf", score, "target", target)
			return s.result(mid, score), nil
		}
		if score > target {
			curMin = mid
		} else {
			curMax = mid
		}

		for iteration < cfg.MaxIterations && curMax-curMin > 1 {
			if s.isCancelled(ctx) {
				return Result{}, errors.NewCancelledError()
			}
			iteration++

			next := (curMin + curMax) / 2
			if len(s.state.Samples) >= 2 {
				next = clamp(InterpolateCRF(s.state.Samples, target), curMin, curMax)
			}
			if s.state.TooClose(next) {
				next = (curMin + curMax) / 2
				if s.state.TooClose(next) {
					break
				}
			}

			score, ok := s.probe(ctx, iteration, next)
			if !ok {
				continue
			}
			if s.state.Settled() {
				settled = true
				break
			}
			if score > target {
				curMin = next
			} else {
				curMax = next
			}
		}
	}

	if !settled {
		if err := s.refine(ctx); err != nil {
			return Result{}, err
		}
	}

	crf, score, ok := s.state.Result()
	if !ok {
		return s.result(mid, 0), nil
	}
	logging.Debug("crf search finished", "crf", crf, "vmaf", score, "target", target, "samples", len(s.state.Samples))
	return s.result(crf, score), nil
}

// refine probes interpolated CRFs across the full family range.
func (s *searcher) refine(ctx context.Context) error {
	cfg := s.cfg
	initial := len(s.state.Samples)
	stale := 0

	for i := 0; i < cfg.MaxIterations-initial; i++ {
		if s.isCancelled(ctx) {
			return errors.NewCancelledError()
		}
		if len(s.state.Samples) < 2 {
			return nil
		}

		guess := clamp(InterpolateCRF(s.state.Samples, cfg.Target), cfg.MinCRF, cfg.MaxCRF)
		if s.state.TooClose(guess) {
			guess = clamp(guess+1, cfg.MinCRF, cfg.MaxCRF)
			if s.state.TooClose(guess) {
				return nil
			}
		}

		before := s.state.BestCRF
		_, ok := s.probe(ctx, initial+i+1, guess)
		if ok && s.state.BestCRF != before {
			stale = 0
		} else {
			stale++
		}

		if ok && s.state.Settled() {
			return nil
		}
		if stale >= MaxStale {
			logging.Debug("crf search stalled", "probes", len(s.state.Samples))
			return nil
		}
	}
	return nil
}

func (s *searcher) probe(ctx context.Context, iteration int, crf float64) (float64, bool) {
	s.report(iteration, crf, 0)

	score, ok := s.prober.Probe(ctx, crf)
	if !ok {
		logging.Debug("probe produced no score", "crf", crf)
		return 0, false
	}

	s.state.Add(crf, score)
	s.report(iteration, crf, score)
	logging.Debug("probe scored", "crf", crf, "vmaf", score, "target", s.cfg.Target)
	return score, true
}

func (s *searcher) report(iteration int, crf, score float64) {
	s.progress(Progress{
		Iteration:     iteration,
		MaxIterations: s.cfg.MaxIterations,
		CRF:           crf,
		Score:         score,
		Target:        s.cfg.Target,
		BestCRF:       s.state.BestCRF,
		BestScore:     s.state.BestScore,
		Samples:       slices.Clone(s.state.Samples),
	})
}

func (s *searcher) isCancelled(ctx context.Context) bool {
	return ctx.Err() != nil || s.cancelled()
}

func (s *searcher) result(crf, score float64) Result {
	return Result{CRF: crf, Score: score, Samples: slices.Clone(s.state.Samples)}
}
