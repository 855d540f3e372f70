package tq

import (
	"context"
	"math"
	"os"

	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/sample"
	"github.com/five82/vcompress/internal/segment"
	"github.com/five82/vcompress/internal/vmaf"
)

// SampleProber encodes one window of the source and scores it against the
// same window of the source. Every probe reuses the same window.
type SampleProber struct {
	key        string
	input      string
	window     segment.Window
	cfg        *config.CompressionConfig
	modelPath  string
	refDecoder string
	cuda       bool
	cancelled  func() bool

	compressor *sample.Compressor
	scorer     *vmaf.Scorer
	created    []string
}

// NewSampleProber creates a prober for input. Window bounds are rounded to
// whole seconds, matching how the sample itself is cut.
func NewSampleProber(compressor *sample.Compressor, scorer *vmaf.Scorer, key, input string, w segment.Window,
	cfg *config.CompressionConfig, modelPath, refDecoder string) *SampleProber {
	return &SampleProber{
		key:        key,
		input:      input,
		window:     segment.Window{Start: math.Round(w.Start), Duration: math.Round(w.Duration)},
		cfg:        cfg,
		modelPath:  modelPath,
		refDecoder: refDecoder,
		cuda:       cfg.VMAFUseCUDA,
		compressor: compressor,
		scorer:     scorer,
	}
}

// WithCancelCheck makes the prober poll fn before every ffmpeg run.
func (p *SampleProber) WithCancelCheck(fn func() bool) *SampleProber {
	p.cancelled = fn
	return p
}

func (p *SampleProber) isCancelled() bool {
	return p.cancelled != nil && p.cancelled()
}

// Probe implements Prober. A CUDA scoring failure switches the remaining
// probes to the CPU scorer.
func (p *SampleProber) Probe(ctx context.Context, crf float64) (float64, bool) {
	if p.isCancelled() {
		return 0, false
	}
	path, err := p.compressor.Compress(ctx, p.key, p.input, p.window, crf, p.cfg)
	if err != nil {
		return 0, false
	}
	p.created = append(p.created, path)
	defer os.Remove(path)

	w := p.window
	req := vmaf.Request{
		Distorted:    path,
		Reference:    p.input,
		ModelPath:    p.modelPath,
		CUDA:         p.cuda,
		RefDecoder:   p.refDecoder,
		Window:       &w,
		CustomParams: p.cfg.CustomVMAFParams,
	}

	if p.isCancelled() {
		return 0, false
	}
	score, ok := p.scorer.Score(ctx, p.key, req)
	if !ok && p.cuda && ctx.Err() == nil {
		if p.isCancelled() {
			return 0, false
		}
		logging.Warn("cuda vmaf failed during search, using cpu", "path", p.input)
		p.cuda = false
		req.CUDA = false
		score, ok = p.scorer.Score(ctx, p.key, req)
	}
	return score, ok
}

// Cleanup removes any sample files this prober left behind.
func (p *SampleProber) Cleanup() {
	for _, path := range p.created {
		_ = os.Remove(path)
	}
	p.created = nil
}
