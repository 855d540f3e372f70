package vcompress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/testutil"
)

// fakeFFmpeg writes "encoded" to the last argument of every progress run
// and fails any run whose input is named bad.mkv.
const fakeFFmpeg = `for last; do :; done
case "$*" in
*bad.mkv*"-progress pipe:2"*) echo "Conversion failed" >&2; exit 1 ;;
*"-progress pipe:2"*)
  printf encoded > "$last"
  echo "out_time_us=5000000" >&2
  echo "progress=end" >&2
  ;;
esac
exit 0
`

func newTestCompressor(t *testing.T, opts ...Option) *Compressor {
	t.Helper()
	ffmpeg := testutil.FakeBinary(t, "ffmpeg", fakeFFmpeg)
	c, err := New(append([]Option{WithFFmpegPath(ffmpeg), WithJobs(2)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"crf over max", []Option{WithTargetCRF(64)}, config.ErrInvalidCRF},
		{"vmaf over 100", []Option{WithTargetVMAF(101)}, config.ErrInvalidVMAFTarget},
		{"zero bitrate", []Option{WithMode(ModeBitrate), WithTargetBitrate(0)}, config.ErrInvalidBitrate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewAcceptsUnknownMode(t *testing.T) {
	c, err := New(WithMode("fast"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.Close()
}

func TestWithConfigIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetCRF = 28
	c, err := New(WithConfig(cfg), WithVideoEncoder("libx265"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	cfg.TargetCRF = 10
	if c.cfg.TargetCRF != 28 {
		t.Errorf("TargetCRF = %v, want 28", c.cfg.TargetCRF)
	}
	if c.cfg.VideoEncoder != "libx265" {
		t.Errorf("VideoEncoder = %q, want libx265", c.cfg.VideoEncoder)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("VMAF")
	if err != nil || m != ModeVMAF {
		t.Errorf("ParseMode(VMAF) = %v, %v", m, err)
	}
	if _, err := ParseMode("fast"); err == nil {
		t.Error("ParseMode(fast) should fail")
	}
}

func TestCompressWritesOutputAndEvents(t *testing.T) {
	c := newTestCompressor(t)
	dir := t.TempDir()
	input := testutil.WriteFile(t, filepath.Join(dir, "movie.mkv"), "source-bytes-source-bytes")
	outDir := filepath.Join(dir, "out")

	var got []Event
	result, err := c.Compress(context.Background(), input, outDir, func(e Event) {
		got = append(got, e)
	})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	wantOut := filepath.Join(outDir, "movie_compressed.mp4")
	if result.OutputFile != wantOut {
		t.Errorf("OutputFile = %q, want %q", result.OutputFile, wantOut)
	}
	if result.Status != StatusDone {
		t.Errorf("Status = %q, want Done", result.Status)
	}
	if result.CRF == nil || *result.CRF != config.DefaultCRF {
		t.Errorf("CRF = %v, want %v", result.CRF, config.DefaultCRF)
	}
	data, err := os.ReadFile(wantOut)
	if err != nil || string(data) != "encoded" {
		t.Errorf("output = %q, %v", data, err)
	}
	if result.SizeReductionPercent <= 0 {
		t.Errorf("SizeReductionPercent = %v, want > 0", result.SizeReductionPercent)
	}

	if len(got) < 3 {
		t.Fatalf("got %d events, want at least 3", len(got))
	}
	if _, ok := got[0].(BatchStartedEvent); !ok {
		t.Errorf("first event = %T, want BatchStartedEvent", got[0])
	}
	if last, ok := got[len(got)-1].(BatchCompleteEvent); !ok || last.SuccessfulCount != 1 {
		t.Errorf("last event = %#v, want BatchCompleteEvent with one success", got[len(got)-1])
	}
	var sawDone bool
	for _, e := range got {
		if p, ok := e.(ProgressEvent); ok && p.Status == StatusDone && p.Progress == 100 {
			sawDone = true
		}
	}
	if !sawDone {
		t.Error("no ProgressEvent with status Done at 100")
	}
}

func TestCompressExplicitOutputFile(t *testing.T) {
	c := newTestCompressor(t)
	dir := t.TempDir()
	input := testutil.WriteFile(t, filepath.Join(dir, "movie.mkv"), "source")
	target := filepath.Join(dir, "custom", "final.mkv")

	result, err := c.Compress(context.Background(), input, target, nil)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if result.OutputFile != target {
		t.Errorf("OutputFile = %q, want %q", result.OutputFile, target)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestCompressBatchCountsFailures(t *testing.T) {
	c := newTestCompressor(t)
	dir := t.TempDir()
	good := testutil.WriteFile(t, filepath.Join(dir, "good.mkv"), "source-bytes")
	bad := testutil.WriteFile(t, filepath.Join(dir, "bad.mkv"), "source-bytes")
	outDir := filepath.Join(dir, "out")

	var errorsSeen int
	batch, err := c.CompressBatch(context.Background(), []Task{{Input: good}, {Input: bad}}, outDir, func(e Event) {
		if _, ok := e.(ErrorEvent); ok {
			errorsSeen++
		}
	})
	if err != nil {
		t.Fatalf("CompressBatch() error = %v", err)
	}

	if batch.TotalFiles != 2 || batch.SuccessfulCount != 1 || batch.FailedCount != 1 {
		t.Errorf("batch = %+v, want 2 files with 1 success and 1 failure", batch)
	}
	if errorsSeen != 1 {
		t.Errorf("ErrorEvents = %d, want 1", errorsSeen)
	}
	if _, err := os.Stat(filepath.Join(outDir, "bad_compressed.mp4")); !os.IsNotExist(err) {
		t.Errorf("failed file should leave no output, stat err = %v", err)
	}
	for _, r := range batch.Results {
		if r.InputFile == bad && r.Err == nil {
			t.Error("failed result should carry its error")
		}
	}
}

func TestCompressBatchEmpty(t *testing.T) {
	c := newTestCompressor(t)
	batch, err := c.CompressBatch(context.Background(), nil, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("CompressBatch() error = %v", err)
	}
	if batch.TotalFiles != 0 || len(batch.Results) != 0 {
		t.Errorf("batch = %+v, want empty", batch)
	}
}

func TestCompressBatchCancelledContext(t *testing.T) {
	c := newTestCompressor(t)
	dir := t.TempDir()
	input := testutil.WriteFile(t, filepath.Join(dir, "movie.mkv"), "source")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	batch, err := c.CompressBatch(ctx, []Task{{Input: input}}, filepath.Join(dir, "out"), nil)
	if err != nil {
		t.Fatalf("CompressBatch() error = %v", err)
	}
	if batch.CancelledCount != 1 {
		t.Errorf("CancelledCount = %d, want 1", batch.CancelledCount)
	}
}

func TestCompressIgnoresMarkFromEarlierBatch(t *testing.T) {
	c := newTestCompressor(t)
	dir := t.TempDir()
	input := testutil.WriteFile(t, filepath.Join(dir, "movie.mkv"), "source")
	c.Cancel(input)

	result, err := c.Compress(context.Background(), input, filepath.Join(dir, "out"), nil)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if result.Status != StatusDone {
		t.Errorf("Status = %q, want Done", result.Status)
	}
}

func TestCancelWaitingFile(t *testing.T) {
	c := newTestCompressor(t, WithJobs(1))
	dir := t.TempDir()
	first := testutil.WriteFile(t, filepath.Join(dir, "first.mkv"), "source")
	second := testutil.WriteFile(t, filepath.Join(dir, "second.mkv"), "source")

	// With one job slot, second waits while first reports progress.
	var once bool
	batch, err := c.CompressBatch(context.Background(), []Task{{Input: first}, {Input: second}}, filepath.Join(dir, "out"), func(e Event) {
		if p, ok := e.(ProgressEvent); ok && p.Path == first && !once {
			once = true
			c.Cancel(second)
		}
	})
	if err != nil {
		t.Fatalf("CompressBatch() error = %v", err)
	}

	if batch.SuccessfulCount != 1 || batch.CancelledCount != 1 {
		t.Fatalf("batch = %+v, want one done and one cancelled", batch)
	}
	for _, r := range batch.Results {
		if r.InputFile == second && r.Status != StatusCancelled {
			t.Errorf("second status = %q, want Cancelled", r.Status)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "second_compressed.mp4")); !os.IsNotExist(err) {
		t.Errorf("cancelled file should leave no output, stat err = %v", err)
	}
}

func TestSubscribeReceivesBatchEvents(t *testing.T) {
	c := newTestCompressor(t)
	dir := t.TempDir()
	input := testutil.WriteFile(t, filepath.Join(dir, "movie.mkv"), "source")

	completed := make(chan BatchCompleteEvent, 1)
	unsub := c.Subscribe(func(e Event) {
		if bc, ok := e.(BatchCompleteEvent); ok {
			completed <- bc
		}
	})
	defer unsub()

	if _, err := c.Compress(context.Background(), input, filepath.Join(dir, "out"), nil); err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	select {
	case bc := <-completed:
		if bc.TotalFiles != 1 {
			t.Errorf("TotalFiles = %d, want 1", bc.TotalFiles)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for BatchCompleteEvent")
	}
}

func TestCancelAndCloseAreSafe(t *testing.T) {
	c := newTestCompressor(t)
	c.Cancel("/nowhere/movie.mkv")
	c.CancelAll()
	c.Close()
	c.Close()
}

func TestFindVideos(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "b.mp4"), "x")
	testutil.WriteFile(t, filepath.Join(dir, "A.mkv"), "x")
	testutil.WriteFile(t, filepath.Join(dir, "notes.txt"), "x")

	files, err := FindVideos(dir)
	if err != nil {
		t.Fatalf("FindVideos() error = %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "A.mkv" || filepath.Base(files[1]) != "b.mp4" {
		t.Errorf("FindVideos() = %v", files)
	}
}
