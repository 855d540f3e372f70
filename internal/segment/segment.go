// Package segment chooses the time windows that are sampled when scoring quality.
package segment

import (
	"math"
	"time"
)

const (
	// ShortVideoSeconds is the duration below which the whole file is one window.
	ShortVideoSeconds = 20.0
	// AutoWindowSeconds is the window length used when sampling is auto-sized.
	AutoWindowSeconds = 20.0
	// AutoMinutesPerWindow adds one window per this many minutes when auto-sized.
	AutoMinutesPerWindow = 12.0
)

// Window is a [Start, Start+Duration) slice of the source in seconds.
type Window struct {
	Start    float64
	Duration float64
}

// Sampling controls how many windows are taken and how long each one is.
type Sampling struct {
	Count    uint32
	Duration float64
	Auto     bool
}

// FullWindow covers the entire source.
func FullWindow(duration float64) []Window {
	return []Window{{Start: 0, Duration: duration}}
}

// Plan spreads Count windows across a source of the given duration. Window i
// is centred near duration*(i+1)/(count+2) with up to ±5s of jitter derived
// from now, then shifted back so it ends inside the source.
func Plan(duration float64, s Sampling, now time.Time) []Window {
	if duration < ShortVideoSeconds {
		return FullWindow(duration)
	}

	count := s.Count
	length := s.Duration
	if s.Auto {
		length = AutoWindowSeconds
		count = uint32(math.Ceil(duration / 60 / AutoMinutesPerWindow))
	} else {
		length = min(length, duration)
		length = max(length, 1)
	}
	count = max(count, 1)

	micros := uint64(now.UnixMicro())
	windows := make([]Window, 0, count)
	for i := uint32(0); i < count; i++ {
		base := duration * float64(i+1) / float64(count+2)
		jitter := (float64((micros+uint64(i)*12345)%100) - 50) / 10

		start := max(math.Round(base+jitter), 0)
		if start+length > duration {
			start = max(duration-length, 0)
		}
		start = max(math.Round(start), 0)

		windows = append(windows, Window{Start: start, Duration: length})
	}
	return windows
}
