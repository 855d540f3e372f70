package ffmpeg

import (
	"bufio"
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestProgressParserBlock(t *testing.T) {
	block := []string{
		"frame=240",
		"fps=48.0",
		"bitrate=1834.2kbits/s",
		"total_size=2293760",
		"out_time_us=10010000",
		"out_time_ms=10010000",
		"out_time=00:00:10.010000",
		"speed=2.01x",
		"progress=continue",
	}

	var p ProgressParser
	ticks := 0
	for _, line := range block {
		if p.Feed(line) {
			ticks++
		}
	}
	if ticks != 1 {
		t.Fatalf("ticks = %d, want 1", ticks)
	}

	got := p.Current()
	if !almostEqual(got.Seconds, 10.01) {
		t.Errorf("Seconds = %v, want 10.01", got.Seconds)
	}
	if !almostEqual(got.Speed, 2.01) {
		t.Errorf("Speed = %v, want 2.01", got.Speed)
	}
	if !almostEqual(got.BitrateKbps, 1834.2) {
		t.Errorf("BitrateKbps = %v, want 1834.2", got.BitrateKbps)
	}
}

func TestProgressParserEdgeValues(t *testing.T) {
	tests := []struct {
		line    string
		check   func(Progress) bool
		comment string
	}{
		{"bitrate=N/A", func(p Progress) bool { return p.BitrateKbps == 0 }, "non-k bitrate is zero"},
		{"speed=N/A", func(p Progress) bool { return p.Speed == 0 }, "unparseable speed is zero"},
		{"out_time=N/A", func(p Progress) bool { return p.Seconds == 0 }, "unparseable time is zero"},
		{"out_time_ms=2500000", func(p Progress) bool { return almostEqual(p.Seconds, 2.5) }, "ms divided by 1e6"},
	}
	for _, tt := range tests {
		t.Run(tt.comment, func(t *testing.T) {
			p := ProgressParser{current: Progress{Seconds: 9, Speed: 9, BitrateKbps: 9}}
			p.Feed(tt.line)
			if !tt.check(p.Current()) {
				t.Errorf("Feed(%q) -> %+v", tt.line, p.Current())
			}
		})
	}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		secs, dur float64
		want      uint8
	}{
		{30, 120, 25},
		{119.9, 120, 99},
		{500, 120, 100},
		{10, 0, 0},
		{-1, 60, 0},
	}
	for _, tt := range tests {
		if got := (Progress{Seconds: tt.secs}).Percent(tt.dur); got != tt.want {
			t.Errorf("Percent(%v/%v) = %d, want %d", tt.secs, tt.dur, got, tt.want)
		}
	}
}

func TestTail(t *testing.T) {
	tail := NewTail(3)
	for _, l := range []string{"a", "", "progress=continue", "b", "c", "d"} {
		tail.Add(l)
	}
	if got := tail.String(); got != "b\nc\nd" {
		t.Errorf("Tail = %q, want %q", got, "b\nc\nd")
	}
}

func TestScanLinesCR(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader("frame=1\rframe=2\nlast"))
	sc.Split(ScanLinesCR)
	var got []string
	for sc.Scan() {
		got = append(got, sc.Text())
	}
	if strings.Join(got, "|") != "frame=1|frame=2|last" {
		t.Errorf("tokens = %v", got)
	}
}
