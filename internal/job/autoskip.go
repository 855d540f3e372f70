package job

import "github.com/five82/vcompress/internal/ffmpeg"

const (
	autoSkipMinSeconds  = 3.0
	autoSkipWindowSecs  = 30.0
	autoSkipWindowRatio = 0.2
	autoSkipTrigger     = 10
)

// autoSkip watches the early part of a crf encode for an output bitrate
// that stays above the input's. A tick under the threshold decrements the
// counter rather than resetting it.
type autoSkip struct {
	inputKbps float64
	threshold float64
	count     int
}

func newAutoSkip(inputKbps float64, thresholdPercent uint32) *autoSkip {
	return &autoSkip{inputKbps: inputKbps, threshold: float64(thresholdPercent) / 100}
}

// observe feeds one progress tick and reports whether the encode should be
// abandoned.
func (a *autoSkip) observe(p ffmpeg.Progress, duration float64) bool {
	if a == nil || duration <= 0 {
		return false
	}
	if p.Seconds <= autoSkipMinSeconds {
		return false
	}
	if p.Seconds >= autoSkipWindowSecs && p.Seconds/duration >= autoSkipWindowRatio {
		return false
	}

	if p.BitrateKbps > a.inputKbps*a.threshold {
		a.count++
	} else if a.count > 0 {
		a.count--
	}
	return a.count > autoSkipTrigger
}
