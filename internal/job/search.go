package job

import (
	"context"

	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/errors"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/metrics"
	"github.com/five82/vcompress/internal/reporter"
	"github.com/five82/vcompress/internal/sample"
	"github.com/five82/vcompress/internal/segment"
	"github.com/five82/vcompress/internal/tq"
	"github.com/five82/vcompress/internal/vmaf"
)

// SearchRequest is the input to a Searcher.
type SearchRequest struct {
	Key       string
	Input     string
	Config    *config.CompressionConfig
	Info      *media.VideoInfo
	Duration  float64
	Report    func(tq.Progress)
	Cancelled func() bool
}

type searchResult struct {
	crf       float64
	score     *float64
	model     string
	cancelled bool
}

// searchModel is the model the search scores samples with. Samples are
// compared at the input's resolution.
func searchModel(info *media.VideoInfo, neg bool) string {
	if info == nil {
		return vmaf.ModelFilename(0, 0, neg)
	}
	return vmaf.ModelFilename(info.Width, info.Height, neg)
}

// runSearch finds the CRF for vmaf mode. Failures other than cancellation
// fall back to tq.FallbackCRF.
func (r *Runner) runSearch(ctx context.Context, t Task, info *media.VideoInfo, duration float64) searchResult {
	key := t.Input
	r.emit(key, 0, media.StatusSearchingCRF, nil)

	req := SearchRequest{
		Key:       key,
		Input:     t.Input,
		Config:    t.Config,
		Info:      info,
		Duration:  duration,
		Report:    func(p tq.Progress) { r.reporter.SearchProgress(searchPayload(key, p)) },
		Cancelled: func() bool { return r.cancels.IsCancelled(key) },
	}

	res, err := r.search(ctx, req)
	if err != nil {
		if errors.IsCancelled(err) || r.isCancelled(ctx, key) {
			return searchResult{cancelled: true}
		}
		logging.Error("crf search failed, using fallback", "path", key, "crf", tq.FallbackCRF, "error", err)
		return searchResult{crf: tq.FallbackCRF}
	}

	logging.Info("crf search complete", "path", key, "crf", res.CRF, "vmaf", res.Score, "samples", len(res.Samples))
	metrics.ObserveSearch(len(res.Samples))
	if r.queue != nil {
		h := r.queue.History()
		h.Push(res.CRF, res.Score)
		logging.Debug("crf history updated", "path", key, "entries", h.Len())
	}
	r.emit(key, 50, media.FoundCRFCompressingStatus(res.CRF), nil)
	return searchResult{crf: res.CRF, score: media.Ptr(res.Score), model: searchModel(info, t.Config.VMAFNeg)}
}

// searchCRF probes the first planned segment of the input at successive
// CRF values.
func (r *Runner) searchCRF(ctx context.Context, req SearchRequest) (tq.Result, error) {
	cfg := req.Config
	var codec string
	if req.Info != nil {
		codec = req.Info.Codec
	}

	modelName := searchModel(req.Info, cfg.VMAFNeg)
	modelPath, ok := vmaf.FindModel(r.ffmpegPath, modelName)
	if !ok {
		return tq.Result{}, errors.NewModelNotFoundError(modelName)
	}

	windows := segment.Plan(req.Duration, cfg.Sampling(), r.now())
	if len(windows) == 0 {
		return tq.Result{}, errors.NewSearchError("no sample window", nil)
	}

	var refDecoder string
	if cfg.VMAFUseCUDA {
		refDecoder, _ = vmaf.CUDADecoder(codec)
	}

	compressor := sample.NewCompressor(r.ffmpegPath, r.registry)
	if r.tempDir != "" {
		compressor = compressor.WithTempDir(r.tempDir)
	}
	scorer := vmaf.NewScorer(r.ffmpegPath, r.registry)
	prober := tq.NewSampleProber(compressor, scorer, req.Key, req.Input, windows[0], cfg, modelPath, refDecoder).
		WithCancelCheck(req.Cancelled)

	return tq.Search(ctx, tq.NewConfig(cfg.VideoEncoderOrDefault(), cfg.TargetVMAF), prober,
		tq.WithCancelCheck(req.Cancelled),
		tq.WithProgress(req.Report),
	)
}

func searchPayload(key string, p tq.Progress) reporter.SearchPayload {
	samples := make([]reporter.SearchSample, len(p.Samples))
	for i, s := range p.Samples {
		samples[i] = reporter.SearchSample{CRF: s.CRF, VMAF: s.Score}
	}
	return reporter.SearchPayload{
		Path:          key,
		Iteration:     p.Iteration,
		MaxIterations: p.MaxIterations,
		CurrentCRF:    p.CRF,
		CurrentVMAF:   p.Score,
		TargetVMAF:    p.Target,
		BestCRF:       p.BestCRF,
		BestVMAF:      p.BestScore,
		Samples:       samples,
	}
}
