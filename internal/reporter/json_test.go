package reporter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/five82/vcompress/internal/media"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var events []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestJSONReporterProgressThrottle(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }

	r.Progress(ProgressPayload{Path: "a.mp4", Progress: 10, Status: media.StatusProcessing})
	r.Progress(ProgressPayload{Path: "a.mp4", Progress: 10, Status: media.StatusProcessing})
	r.Progress(ProgressPayload{Path: "a.mp4", Progress: 11, Status: media.StatusProcessing})
	r.Progress(ProgressPayload{Path: "a.mp4", Progress: 11, Status: media.StatusPass2})
	now = now.Add(6 * time.Second)
	r.Progress(ProgressPayload{Path: "a.mp4", Progress: 11, Status: media.StatusPass2})
	r.Progress(ProgressPayload{Path: "a.mp4", Progress: 100, Status: media.StatusDone})

	events := decodeLines(t, &buf)
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	last := events[len(events)-1]
	if last["status"] != "Done" || last["type"] != "progress" {
		t.Errorf("last event = %v", last)
	}
}

func TestJSONReporterOmitsUnsetFields(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	info := &media.VideoInfo{Name: "out.mp4", Status: media.StatusDone}
	r.Progress(ProgressPayload{Path: "a.mp4", Progress: 100, Status: media.StatusDone, OutputInfo: info})

	events := decodeLines(t, &buf)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if _, ok := events[0]["speed"]; ok {
		t.Error("speed should be omitted when unset")
	}
	out, ok := events[0]["output_info"].(map[string]any)
	if !ok {
		t.Fatal("output_info missing")
	}
	for _, key := range []string{"vmaf", "vmafDevice", "vmafDetail", "vmafModel", "vmafTotalSegments"} {
		if _, ok := out[key]; ok {
			t.Errorf("output_info should not contain %s", key)
		}
	}
}

func TestJSONReporterSearchProgress(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)
	best := 28.0

	r.SearchProgress(SearchPayload{
		Path:          "a.mp4",
		Iteration:     2,
		MaxIterations: 10,
		CurrentCRF:    28,
		CurrentVMAF:   95.2,
		TargetVMAF:    95,
		BestCRF:       &best,
		Samples:       []SearchSample{{CRF: 32, VMAF: 93.1}, {CRF: 28, VMAF: 95.2}},
	})

	events := decodeLines(t, &buf)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev["best_crf"] != 28.0 {
		t.Errorf("best_crf = %v", ev["best_crf"])
	}
	if _, ok := ev["best_vmaf"]; ok {
		t.Error("best_vmaf should be omitted")
	}
	if samples, _ := ev["samples"].([]any); len(samples) != 2 {
		t.Errorf("samples = %v", ev["samples"])
	}
}

func TestCompositeReporterFansOut(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	c := NewCompositeReporter(a, nil, b)

	c.Progress(ProgressPayload{Path: "x", Status: media.StatusProcessing})
	c.Warning("careful")

	for _, r := range []*Recorder{a, b} {
		if got := r.Statuses("x"); len(got) != 1 || got[0] != media.StatusProcessing {
			t.Errorf("statuses = %v", got)
		}
		if len(r.Warnings()) != 1 {
			t.Errorf("warnings = %v", r.Warnings())
		}
	}
}
