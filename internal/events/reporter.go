package events

import (
	"github.com/five82/vcompress/internal/reporter"
)

// Publisher accepts events. *Bus is the asynchronous implementation.
type Publisher interface {
	Publish(ev Event)
}

// PublisherFunc calls a function synchronously for each event.
type PublisherFunc func(ev Event)

// Publish calls f(ev).
func (f PublisherFunc) Publish(ev Event) { f(ev) }

// Reporter turns every reporter callback into an event.
type Reporter struct {
	bus Publisher
}

// NewReporter returns a reporter.Reporter that publishes to p.
func NewReporter(p Publisher) *Reporter {
	return &Reporter{bus: p}
}

func (r *Reporter) BatchStarted(info reporter.BatchStartInfo) {
	r.bus.Publish(BatchStartedEvent{BatchStartInfo: info})
}

// FileProgress has no bus event; subscribers learn the file from ProgressEvent.Path.
func (r *Reporter) FileProgress(reporter.FileProgressContext) {}

func (r *Reporter) Progress(update reporter.ProgressPayload) {
	if update.OutputInfo != nil {
		update.OutputInfo = update.OutputInfo.Clone()
	}
	r.bus.Publish(ProgressEvent{ProgressPayload: update})
}

func (r *Reporter) SearchProgress(update reporter.SearchPayload) {
	update.Samples = append([]reporter.SearchSample(nil), update.Samples...)
	r.bus.Publish(SearchProgressEvent{SearchPayload: update})
}

func (r *Reporter) FileComplete(outcome reporter.FileOutcome) {
	r.bus.Publish(FileCompleteEvent{FileOutcome: outcome})
}

func (r *Reporter) BatchComplete(summary reporter.BatchSummary) {
	r.bus.Publish(BatchCompleteEvent{BatchSummary: summary})
}

func (r *Reporter) Warning(message string) {
	r.bus.Publish(WarningEvent{Message: message})
}

func (r *Reporter) Error(err reporter.ReporterError) {
	r.bus.Publish(ErrorEvent{ReporterError: err})
}

func (r *Reporter) Verbose(string) {}
