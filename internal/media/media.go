// Package media holds the per-file VideoInfo record and the status vocabulary
// shared by the job runner, the scoring scheduler and the reporters.
package media

import (
	"fmt"
	"slices"
)

// Status is the user facing state of a file.
type Status string

const (
	StatusPending        Status = "Pending"
	StatusScanning       Status = "Scanning"
	StatusProcessing     Status = "Processing"
	StatusPass1          Status = "Processing (Pass 1/2)"
	StatusPass2          Status = "Processing (Pass 2/2)"
	StatusSearchingCRF   Status = "Searching CRF"
	StatusDone           Status = "Done"
	StatusError          Status = "Error"
	StatusSkipped        Status = "Skipped"
	StatusCancelled      Status = "Cancelled"
	StatusEvaluating     Status = "Evaluating"
	StatusWaitingForVMAF Status = "Waiting for VMAF"
)

// FoundCRFStatus is the status shown while encoding with a searched CRF.
func FoundCRFStatus(crf float64) Status {
	return Status(fmt.Sprintf("Found CRF %.0f", crf))
}

// FoundCRFCompressingStatus is emitted once the search has settled on a CRF.
func FoundCRFCompressingStatus(crf float64) Status {
	return Status(fmt.Sprintf("Found CRF %.0f, compressing...", crf))
}

// Terminal reports whether no further progress will follow this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusError, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}

// Device names reported for VMAF scoring.
const (
	DeviceCUDA = "CUDA"
	DeviceCPU  = "CPU"
)

// VideoInfo describes one file. It is created by probing and then annotated
// by the job that owns it; share it only through Clone.
type VideoInfo struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Size        uint64   `json:"size"`
	Resolution  string   `json:"resolution"`
	Bitrate     string   `json:"bitrate"`
	Codec       string   `json:"encoder"`
	Status      Status   `json:"status"`
	Progress    uint8    `json:"progress"`
	DurationSec float64  `json:"durationSec"`
	Speed       *float64 `json:"speed,omitempty"`
	BitrateKbps *float64 `json:"bitrateKbps,omitempty"`

	VMAF              *float64  `json:"vmaf,omitempty"`
	VMAFDevice        *string   `json:"vmafDevice,omitempty"`
	VMAFDetail        []float64 `json:"vmafDetail,omitempty"`
	VMAFTotalSegments *uint32   `json:"vmafTotalSegments,omitempty"`
	VMAFModel         *string   `json:"vmafModel,omitempty"`

	// Width and Height are parsed from the video stream; Resolution is derived.
	Width  uint32 `json:"-"`
	Height uint32 `json:"-"`
}

// Clone returns a deep copy.
func (v *VideoInfo) Clone() *VideoInfo {
	if v == nil {
		return nil
	}
	out := *v
	out.Speed = clonePtr(v.Speed)
	out.BitrateKbps = clonePtr(v.BitrateKbps)
	out.VMAF = clonePtr(v.VMAF)
	out.VMAFDevice = clonePtr(v.VMAFDevice)
	out.VMAFTotalSegments = clonePtr(v.VMAFTotalSegments)
	out.VMAFModel = clonePtr(v.VMAFModel)
	out.VMAFDetail = slices.Clone(v.VMAFDetail)
	return &out
}

// SetVMAF attaches an aggregate score with the device and model that produced it.
func (v *VideoInfo) SetVMAF(score float64, device, model string) {
	v.VMAF = Ptr(score)
	v.VMAFDevice = Ptr(device)
	v.VMAFModel = Ptr(model)
}

// FormatBitrate renders kbps as "%.1f Mbps", or "N/A" when unknown.
func FormatBitrate(kbps *float64) string {
	if kbps == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f Mbps", *kbps/1000)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
