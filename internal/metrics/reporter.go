package metrics

import (
	"strings"

	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/reporter"
)

// Reporter turns reporter callbacks into metric updates. Combine it with a
// user facing reporter through reporter.NewCompositeReporter.
type Reporter struct {
	reporter.NullReporter
}

// NewReporter creates a metrics reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Progress observes the VMAF score of outputs that finish with one.
func (r *Reporter) Progress(update reporter.ProgressPayload) {
	if update.Status != media.StatusDone || update.OutputInfo == nil || update.OutputInfo.VMAF == nil {
		return
	}
	vmafScore.Observe(*update.OutputInfo.VMAF)
}

// SearchProgress counts scored probes. Updates sent before a probe carry no score.
func (r *Reporter) SearchProgress(update reporter.SearchPayload) {
	if update.CurrentVMAF > 0 {
		searchProbes.Inc()
	}
}

// FileComplete counts the outcome and, for successes, the bytes saved.
func (r *Reporter) FileComplete(outcome reporter.FileOutcome) {
	jobsTotal.WithLabelValues(statusLabel(outcome.Status)).Inc()
	jobDuration.Observe(outcome.TotalTime.Seconds())
	if outcome.Status == media.StatusDone && outcome.EncodedSize > 0 && outcome.OriginalSize > outcome.EncodedSize {
		bytesSaved.Add(float64(outcome.OriginalSize - outcome.EncodedSize))
	}
}

func statusLabel(s media.Status) string {
	switch s {
	case media.StatusDone, media.StatusError, media.StatusSkipped, media.StatusCancelled:
		return strings.ToLower(string(s))
	case media.StatusWaitingForVMAF:
		return "done"
	default:
		return "other"
	}
}
