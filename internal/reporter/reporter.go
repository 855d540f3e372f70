package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	BatchStarted(info BatchStartInfo)
	FileProgress(context FileProgressContext)
	Progress(update ProgressPayload)
	SearchProgress(update SearchPayload)
	FileComplete(outcome FileOutcome)
	BatchComplete(summary BatchSummary)
	Warning(message string)
	Error(err ReporterError)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) BatchStarted(BatchStartInfo)       {}
func (NullReporter) FileProgress(FileProgressContext) {}
func (NullReporter) Progress(ProgressPayload)          {}
func (NullReporter) SearchProgress(SearchPayload)      {}
func (NullReporter) FileComplete(FileOutcome)          {}
func (NullReporter) BatchComplete(BatchSummary)        {}
func (NullReporter) Warning(string)                    {}
func (NullReporter) Error(ReporterError)               {}
func (NullReporter) Verbose(string)                    {}

// OrNull returns r, or a NullReporter when r is nil.
func OrNull(r Reporter) Reporter {
	if r == nil {
		return NullReporter{}
	}
	return r
}
