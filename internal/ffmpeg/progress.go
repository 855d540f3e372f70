package ffmpeg

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/five82/vcompress/internal/util"
)

// Progress is the state accumulated from "-progress pipe:2" key=value lines.
type Progress struct {
	Seconds     float64
	Speed       float64
	BitrateKbps float64
}

// ProgressParser accumulates key=value progress lines. Feed reports true on
// each "progress=" line, which ends a progress block.
type ProgressParser struct {
	current Progress
}

// Feed consumes one line. The keys are checked in a fixed order and at most
// one value is taken per line.
func (p *ProgressParser) Feed(line string) bool {
	switch {
	case hasKey(line, "out_time="):
		if secs, ok := util.ParseFFmpegTime(valueAfter(line, "out_time=")); ok {
			p.current.Seconds = secs
		} else {
			p.current.Seconds = 0
		}
	case hasKey(line, "out_time_ms="):
		p.current.Seconds = parseFloat(valueAfter(line, "out_time_ms=")) / 1e6
	case hasKey(line, "out_time_us="):
		p.current.Seconds = parseFloat(valueAfter(line, "out_time_us=")) / 1e6
	case hasKey(line, "speed="):
		v := valueAfter(line, "speed=")
		if i := strings.IndexByte(v, 'x'); i >= 0 {
			v = v[:i]
		}
		p.current.Speed = parseFloat(v)
	case hasKey(line, "bitrate="):
		v := valueAfter(line, "bitrate=")
		if i := strings.IndexByte(v, 'k'); i >= 0 {
			p.current.BitrateKbps = parseFloat(v[:i])
		} else {
			p.current.BitrateKbps = 0
		}
	}
	return strings.Contains(line, "progress=")
}

// Current returns the accumulated progress.
func (p *ProgressParser) Current() Progress {
	return p.current
}

// Percent maps the elapsed output time onto 0-100 for a source of duration seconds.
func (p Progress) Percent(duration float64) uint8 {
	if duration <= 0 {
		return 0
	}
	pct := p.Seconds / duration * 100
	if pct >= 100 {
		return 100
	}
	if pct <= 0 {
		return 0
	}
	return uint8(pct)
}

func hasKey(line, key string) bool {
	return strings.Contains(line, key)
}

func valueAfter(line, key string) string {
	i := strings.Index(line, key)
	return strings.TrimSpace(line[i+len(key):])
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Tail keeps the last N diagnostic stderr lines of a process, skipping blank
// lines and progress block terminators.
type Tail struct {
	lines []string
	max   int
}

// NewTail creates a ring of at most n lines.
func NewTail(n int) *Tail {
	return &Tail{max: n}
}

// Add records line if it carries diagnostic content.
func (t *Tail) Add(line string) {
	if strings.Contains(line, "progress=") || strings.TrimSpace(line) == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[1:]
	}
}

// Lines returns the buffered lines, oldest first.
func (t *Tail) Lines() []string {
	return append([]string(nil), t.lines...)
}

// String joins the buffered lines with newlines.
func (t *Tail) String() string {
	return strings.Join(t.lines, "\n")
}

// ScanLinesCR is a bufio.SplitFunc that ends tokens at either '\n' or '\r'.
func ScanLinesCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = ScanLinesCR
