package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal. One progress
// bar follows the first active file; other files concurrently in flight print
// a line whenever their status changes.
type TerminalReporter struct {
	mu         sync.Mutex
	out        io.Writer
	barOut     io.Writer
	progress   *progressbar.ProgressBar
	barPath    string
	maxPercent uint8
	statuses   map[string]media.Status
	verbose    bool
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
}

// NewTerminalReporter creates a new terminal reporter.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		out:      os.Stdout,
		barOut:   os.Stderr,
		statuses: make(map[string]media.Status),
		verbose:  verbose,
		cyan:     color.New(color.FgCyan, color.Bold),
		green:    color.New(color.FgGreen),
		yellow:   color.New(color.FgYellow, color.Bold),
		red:      color.New(color.FgRed, color.Bold),
		magenta:  color.New(color.FgMagenta),
		bold:     color.New(color.Bold),
	}
}

func (r *TerminalReporter) newBar(path string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription(filepath.Base(path)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.barOut),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// finishBarLocked must be called with r.mu held.
func (r *TerminalReporter) finishBarLocked() {
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.barPath = ""
	r.maxPercent = 0
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) BatchStarted(info BatchStartInfo) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "BATCH")
	_, _ = fmt.Fprintf(r.out, "  Processing %d files -> %s\n", info.TotalFiles, r.bold.Sprint(info.OutputDir))
	for i, name := range info.FileList {
		_, _ = fmt.Fprintf(r.out, "  %d. %s\n", i+1, name)
	}
}

func (r *TerminalReporter) FileProgress(context FileProgressContext) {
	_, _ = fmt.Fprintf(r.out, "\nFile %s of %d: %s\n",
		r.bold.Sprint(context.CurrentFile),
		context.TotalFiles,
		filepath.Base(context.Path))
}

func (r *TerminalReporter) Progress(update ProgressPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, seen := r.statuses[update.Path]
	changed := !seen || prev != update.Status
	if update.Status.Terminal() {
		delete(r.statuses, update.Path)
	} else {
		r.statuses[update.Path] = update.Status
	}

	if r.progress == nil && !update.Status.Terminal() {
		r.progress = r.newBar(update.Path)
		r.barPath = update.Path
	}

	if r.barPath == update.Path {
		if update.Status.Terminal() {
			r.finishBarLocked()
			r.printStatusLocked(update)
			return
		}
		if changed {
			// A new phase restarts the percentage.
			r.maxPercent = 0
		}
		if update.Progress >= r.maxPercent {
			r.maxPercent = update.Progress
			_ = r.progress.Set64(int64(update.Progress))
		}
		r.progress.Describe(r.describe(update))
		return
	}

	if changed {
		r.printStatusLocked(update)
	}
}

func (r *TerminalReporter) describe(update ProgressPayload) string {
	desc := fmt.Sprintf("%s %s", filepath.Base(update.Path), update.Status)
	if update.Speed != nil {
		desc += fmt.Sprintf(", speed %.2fx", *update.Speed)
	}
	if update.BitrateKbps != nil && *update.BitrateKbps > 0 {
		desc += fmt.Sprintf(", %.0f kbps", *update.BitrateKbps)
	}
	return desc
}

func (r *TerminalReporter) printStatusLocked(update ProgressPayload) {
	var status string
	switch update.Status {
	case media.StatusDone:
		status = r.green.Sprint(update.Status)
	case media.StatusError, media.StatusCancelled:
		status = r.red.Sprint(update.Status)
	case media.StatusSkipped:
		status = r.yellow.Sprint(update.Status)
	default:
		status = string(update.Status)
	}

	line := fmt.Sprintf("  %s %s: %s", r.magenta.Sprint("›"), filepath.Base(update.Path), status)
	if info := update.OutputInfo; info != nil && info.VMAF != nil {
		line += fmt.Sprintf(" (VMAF %.2f", *info.VMAF)
		if info.VMAFDevice != nil {
			line += " on " + *info.VMAFDevice
		}
		line += ")"
	}
	_, _ = fmt.Fprintln(r.out, line)
}

func (r *TerminalReporter) SearchProgress(update SearchPayload) {
	if update.CurrentVMAF == 0 {
		return
	}
	msg := fmt.Sprintf("CRF %.0f -> VMAF %.2f (target %.1f, probe %d/%d)",
		update.CurrentCRF, update.CurrentVMAF, update.TargetVMAF, update.Iteration, update.MaxIterations)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil && r.barPath == update.Path {
		r.progress.Describe(fmt.Sprintf("%s %s", filepath.Base(update.Path), msg))
		return
	}
	_, _ = fmt.Fprintf(r.out, "  %s %s: %s\n", r.magenta.Sprint("›"), filepath.Base(update.Path), msg)
}

func (r *TerminalReporter) FileComplete(outcome FileOutcome) {
	r.mu.Lock()
	if r.barPath == outcome.InputFile {
		r.finishBarLocked()
	}
	r.mu.Unlock()

	if outcome.Status != media.StatusDone && outcome.Status != media.StatusWaitingForVMAF {
		return
	}

	reduction := util.CalculateSizeReduction(outcome.OriginalSize, outcome.EncodedSize)
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "RESULTS")
	r.printLabel(10, "Output:", r.bold.Sprint(outcome.OutputFile))
	r.printLabel(10, "Size:", fmt.Sprintf("%s -> %s",
		util.FormatBytes(outcome.OriginalSize),
		util.FormatBytes(outcome.EncodedSize)))
	r.printLabel(10, "Reduction:", r.bold.Sprintf("%.1f%%", reduction))
	if outcome.CRF != nil {
		r.printLabel(10, "CRF:", fmt.Sprintf("%.0f", *outcome.CRF))
	}
	if outcome.VMAF != nil {
		r.printLabel(10, "VMAF:", fmt.Sprintf("%.2f", *outcome.VMAF))
	}
	r.printLabel(10, "Time:", util.FormatDuration(outcome.TotalTime.Seconds()))
}

func (r *TerminalReporter) BatchComplete(summary BatchSummary) {
	reduction := util.CalculateSizeReduction(summary.TotalOriginalSize, summary.TotalEncodedSize)

	_, _ = fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "BATCH SUMMARY")
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.bold.Sprintf("%d of %d succeeded", summary.SuccessfulCount, summary.TotalFiles))
	_, _ = fmt.Fprintf(r.out, "  Skipped: %s, failed: %s, cancelled: %d\n",
		r.yellow.Sprint(summary.SkippedCount),
		r.red.Sprint(summary.FailedCount),
		summary.CancelledCount)
	_, _ = fmt.Fprintf(r.out, "  Size: %s -> %s (%.1f%% reduction)\n",
		util.FormatBytes(summary.TotalOriginalSize), util.FormatBytes(summary.TotalEncodedSize), reduction)
	_, _ = fmt.Fprintf(r.out, "  Time: %s\n", util.FormatDuration(summary.TotalDuration.Seconds()))

	for _, result := range summary.FileResults {
		_, _ = fmt.Fprintf(r.out, "  - %s: %s (%.1f%% reduction)\n", result.Filename, result.Status, result.Reduction)
	}
}

func (r *TerminalReporter) Warning(message string) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.yellow.Fprintf(r.out, "WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	_, _ = fmt.Fprintln(os.Stderr)
	_, _ = r.red.Fprintf(os.Stderr, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	_, _ = fmt.Fprintf(r.out, "  %s\n", color.New(color.Faint).Sprint(message))
}
