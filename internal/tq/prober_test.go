package tq

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/registry"
	"github.com/five82/vcompress/internal/sample"
	"github.com/five82/vcompress/internal/segment"
	"github.com/five82/vcompress/internal/testutil"
	"github.com/five82/vcompress/internal/vmaf"
)

func TestSampleProberFallsBackToCPU(t *testing.T) {
	dir := t.TempDir()
	calls := filepath.Join(dir, "calls.txt")
	// Scoring runs print a score (CUDA runs fail); encode runs write their
	// last argument.
	bin := testutil.FakeBinaryIn(t, dir, "ffmpeg", `echo "$*" >> "`+calls+`"
case "$*" in
  *libvmaf_cuda*) exit 1 ;;
  *-filter_complex*) echo "VMAF score: 96.5" >&2; exit 0 ;;
esac
for last; do :; done
echo sample > "$last"
`)

	samples := t.TempDir()
	reg := registry.New()
	cfg := config.Default()
	cfg.VMAFUseCUDA = true

	p := NewSampleProber(
		sample.NewCompressor(bin, reg).WithTempDir(samples),
		vmaf.NewScorer(bin, reg),
		"key", "/videos/in.mkv",
		segment.Window{Start: 59.6, Duration: 10},
		cfg, "/models/vmaf_v0.6.1.json", "h264_cuvid",
	)

	for _, crf := range []float64{30, 26} {
		score, ok := p.Probe(context.Background(), crf)
		if !ok || score != 96.5 {
			t.Fatalf("Probe(%v) = %v, %v", crf, score, ok)
		}
	}
	p.Cleanup()

	data, err := os.ReadFile(calls)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// encode, cuda score, cpu score, encode, cpu score
	if len(lines) != 5 {
		t.Fatalf("ffmpeg ran %d times, want 5:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[1], "libvmaf_cuda") || strings.Contains(lines[4], "libvmaf_cuda") {
		t.Errorf("cuda should be tried once then dropped:\n%s", data)
	}
	if !strings.Contains(lines[2], "-ss 60 -t 10 -i /videos/in.mkv") {
		t.Errorf("reference window should be rounded: %s", lines[2])
	}
	if !strings.Contains(lines[0], "-ss 60 -t 10") {
		t.Errorf("sample window should be rounded: %s", lines[0])
	}

	entries, _ := os.ReadDir(samples)
	if len(entries) != 0 {
		t.Errorf("%d sample files left behind", len(entries))
	}
}

func TestSampleProberStopsAfterCancelledCUDARun(t *testing.T) {
	dir := t.TempDir()
	calls := filepath.Join(dir, "calls.txt")
	marker := filepath.Join(dir, "cancelled")
	// The CUDA scoring run stands in for one killed by a user cancel.
	bin := testutil.FakeBinaryIn(t, dir, "ffmpeg", `echo "$*" >> "`+calls+`"
case "$*" in
  *libvmaf_cuda*) touch "`+marker+`"; exit 1 ;;
  *-filter_complex*) echo "VMAF score: 96.5" >&2; exit 0 ;;
esac
for last; do :; done
echo sample > "$last"
`)

	cfg := config.Default()
	cfg.VMAFUseCUDA = true
	reg := registry.New()
	p := NewSampleProber(
		sample.NewCompressor(bin, reg).WithTempDir(t.TempDir()),
		vmaf.NewScorer(bin, reg),
		"key", "/videos/in.mkv",
		segment.Window{Start: 60, Duration: 10},
		cfg, "/models/vmaf_v0.6.1.json", "",
	).WithCancelCheck(func() bool {
		_, err := os.Stat(marker)
		return err == nil
	})

	if _, ok := p.Probe(context.Background(), 30); ok {
		t.Fatal("Probe() should fail once cancelled")
	}
	if _, ok := p.Probe(context.Background(), 26); ok {
		t.Fatal("Probe() after cancel should fail")
	}
	p.Cleanup()

	data, err := os.ReadFile(calls)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// encode, cuda score; no cpu fallback and nothing for the second probe
	if len(lines) != 2 {
		t.Fatalf("ffmpeg ran %d times, want 2:\n%s", len(lines), data)
	}
}

func TestSampleProberSkipsEncodeWhenCancelled(t *testing.T) {
	dir := t.TempDir()
	calls := filepath.Join(dir, "calls.txt")
	bin := testutil.FakeBinaryIn(t, dir, "ffmpeg", `echo "$*" >> "`+calls+`"
exit 0
`)
	reg := registry.New()
	p := NewSampleProber(
		sample.NewCompressor(bin, reg).WithTempDir(t.TempDir()),
		vmaf.NewScorer(bin, reg),
		"key", "/videos/in.mkv",
		segment.Window{Start: 0, Duration: 10},
		config.Default(), "/models/vmaf_v0.6.1.json", "",
	).WithCancelCheck(func() bool { return true })

	if _, ok := p.Probe(context.Background(), 30); ok {
		t.Fatal("Probe() should fail when cancelled")
	}
	if _, err := os.Stat(calls); !os.IsNotExist(err) {
		t.Errorf("ffmpeg should not run, stat err = %v", err)
	}
}
