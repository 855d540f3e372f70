package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/five82/vcompress/internal/errors"
	"github.com/five82/vcompress/internal/segment"
)

// Default constants
const (
	// DefaultCRF is the fallback CRF when a search fails or no samples interpolate.
	DefaultCRF float64 = 23

	// DefaultTargetVMAF is the default quality target for vmaf mode.
	DefaultTargetVMAF float64 = 95

	// DefaultTargetBitrate is the default bitrate in kbps for bitrate mode.
	DefaultTargetBitrate uint32 = 5000

	// DefaultVideoEncoder is used when no video encoder is configured.
	DefaultVideoEncoder = "libx264"

	// DefaultAudioEncoder is used when no audio encoder is configured.
	DefaultAudioEncoder = "aac"

	// DefaultTargetFormat is the default output container.
	DefaultTargetFormat = "mp4"

	// DefaultSuffix is appended to the output stem by the CLI.
	DefaultSuffix = "_compressed"

	// DefaultVMAFSegmentCount is the number of sampled windows for scoring.
	DefaultVMAFSegmentCount uint32 = 3

	// DefaultVMAFSegmentDuration is the length in seconds of each sampled window.
	DefaultVMAFSegmentDuration uint32 = 10

	// DefaultAutoSkipThreshold is the percent of the source bitrate that counts as "not smaller".
	DefaultAutoSkipThreshold uint32 = 95

	// MaxCRF is the maximum valid CRF value.
	MaxCRF float64 = 63

	// MaxAutoSkipThreshold bounds CRFAutoSkipThreshold.
	MaxAutoSkipThreshold uint32 = 1000
)

// Mode selects how the video stream is rate-controlled.
type Mode string

const (
	ModeCopy    Mode = "copy"
	ModeBitrate Mode = "bitrate"
	ModeCRF     Mode = "crf"
	ModeVMAF    Mode = "vmaf"
)

// ParseMode parses a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "copy":
		return ModeCopy, nil
	case "bitrate":
		return ModeBitrate, nil
	case "crf":
		return ModeCRF, nil
	case "vmaf":
		return ModeVMAF, nil
	default:
		return "", fmt.Errorf("%w: '%s', valid options: copy, bitrate, crf, vmaf", ErrInvalidMode, s)
	}
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// MaxResolution caps the output width via a scale filter.
type MaxResolution struct {
	Enabled bool   `json:"enabled" toml:"enabled" yaml:"enabled"`
	Width   uint32 `json:"width" toml:"width" yaml:"width"`
	Height  uint32 `json:"height" toml:"height" yaml:"height"`
}

// Active reports whether the cap should be applied.
func (m MaxResolution) Active() bool {
	return m.Enabled && m.Width > 0 && m.Height > 0
}

// EncoderDef describes a selectable encoder and its extra arguments.
type EncoderDef struct {
	Name         string   `json:"name" toml:"name" yaml:"name"`
	Value        string   `json:"value" toml:"value" yaml:"value"`
	Visible      bool     `json:"visible" toml:"visible" yaml:"visible"`
	CustomParams []string `json:"customParams" toml:"customParams" yaml:"customParams"`
}

// CompressionConfig holds the settings for a compression job. It is treated as
// immutable once a job starts; Clone before modifying a shared value.
type CompressionConfig struct {
	Mode          Mode    `json:"compressionMode" toml:"compressionMode" yaml:"compressionMode"`
	TargetBitrate uint32  `json:"targetBitrate" toml:"targetBitrate" yaml:"targetBitrate"`
	TargetCRF     float64 `json:"targetCRF" toml:"targetCRF" yaml:"targetCRF"`
	TargetVMAF    float64 `json:"targetVMAF" toml:"targetVMAF" yaml:"targetVMAF"`

	FFmpegThreads  uint32 `json:"ffmpegThreads" toml:"ffmpegThreads" yaml:"ffmpegThreads"`
	FFprobeThreads uint32 `json:"ffprobeThreads" toml:"ffprobeThreads" yaml:"ffprobeThreads"`

	MaxResolution MaxResolution `json:"maxResolution" toml:"maxResolution" yaml:"maxResolution"`

	VideoEncoder           string       `json:"videoEncoder" toml:"videoEncoder" yaml:"videoEncoder"`
	AudioEncoder           string       `json:"audioEncoder" toml:"audioEncoder" yaml:"audioEncoder"`
	TargetFormat           string       `json:"targetFormat" toml:"targetFormat" yaml:"targetFormat"`
	AvailableVideoEncoders []EncoderDef `json:"availableVideoEncoders" toml:"availableVideoEncoders" yaml:"availableVideoEncoders"`
	AvailableAudioEncoders []EncoderDef `json:"availableAudioEncoders" toml:"availableAudioEncoders" yaml:"availableAudioEncoders"`
	CustomFilters          []string     `json:"customFilters" toml:"customFilters" yaml:"customFilters"`
	Suffix                 string       `json:"suffix" toml:"suffix" yaml:"suffix"`

	TwoPass              bool   `json:"twoPass" toml:"twoPass" yaml:"twoPass"`
	MinBitrateThreshold  uint32 `json:"minBitrateThreshold" toml:"minBitrateThreshold" yaml:"minBitrateThreshold"`
	CRFAutoSkip          bool   `json:"crfAutoSkip" toml:"crfAutoSkip" yaml:"crfAutoSkip"`
	CRFAutoSkipThreshold uint32 `json:"crfAutoSkipThreshold" toml:"crfAutoSkipThreshold" yaml:"crfAutoSkipThreshold"`

	// VMAF settings
	EnableVMAF             bool     `json:"enableVmaf" toml:"enableVmaf" yaml:"enableVmaf"`
	VMAFFullComputation    bool     `json:"vmafFullComputation" toml:"vmafFullComputation" yaml:"vmafFullComputation"`
	VMAFSegmentCount       uint32   `json:"vmafSegmentCount" toml:"vmafSegmentCount" yaml:"vmafSegmentCount"`
	VMAFSegmentDuration    uint32   `json:"vmafSegmentDuration" toml:"vmafSegmentDuration" yaml:"vmafSegmentDuration"`
	VMAFAutoConfig         bool     `json:"vmafAutoConfig" toml:"vmafAutoConfig" yaml:"vmafAutoConfig"`
	VMAFUseCUDA            bool     `json:"vmafUseCuda" toml:"vmafUseCuda" yaml:"vmafUseCuda"`
	VMAFNeg                bool     `json:"vmafNeg" toml:"vmafNeg" yaml:"vmafNeg"`
	CustomVMAFParams       []string `json:"customVmafParams" toml:"customVmafParams" yaml:"customVmafParams"`
	VMAFSearchOptimization bool     `json:"vmafSearchOptimization" toml:"vmafSearchOptimization" yaml:"vmafSearchOptimization"`
}

// Default returns a CompressionConfig populated with default values.
func Default() *CompressionConfig {
	return &CompressionConfig{
		Mode:                 ModeCRF,
		TargetBitrate:        DefaultTargetBitrate,
		TargetCRF:            DefaultCRF,
		TargetVMAF:           DefaultTargetVMAF,
		VideoEncoder:         DefaultVideoEncoder,
		AudioEncoder:         DefaultAudioEncoder,
		TargetFormat:         DefaultTargetFormat,
		Suffix:               DefaultSuffix,
		CRFAutoSkipThreshold: DefaultAutoSkipThreshold,
		VMAFSegmentCount:     DefaultVMAFSegmentCount,
		VMAFSegmentDuration:  DefaultVMAFSegmentDuration,
	}
}

// Clone returns a deep copy of the configuration.
func (c *CompressionConfig) Clone() *CompressionConfig {
	out := *c
	out.AvailableVideoEncoders = cloneEncoders(c.AvailableVideoEncoders)
	out.AvailableAudioEncoders = cloneEncoders(c.AvailableAudioEncoders)
	out.CustomFilters = slices.Clone(c.CustomFilters)
	out.CustomVMAFParams = slices.Clone(c.CustomVMAFParams)
	return &out
}

func cloneEncoders(in []EncoderDef) []EncoderDef {
	if in == nil {
		return nil
	}
	out := make([]EncoderDef, len(in))
	for i, e := range in {
		out[i] = e
		out[i].CustomParams = slices.Clone(e.CustomParams)
	}
	return out
}

// Validate checks the configuration for errors. Every failure is a
// KindConfig error wrapping one of the sentinels in this package.
//
// An unrecognized Mode is accepted: the encoder then runs without any
// rate-control arguments. Use ParseMode at input boundaries to reject typos.
func (c *CompressionConfig) Validate() error {
	if c.TargetCRF < 0 || c.TargetCRF > MaxCRF {
		return invalid(ErrInvalidCRF, "targetCRF must be 0-%.0f, got %v", MaxCRF, c.TargetCRF)
	}

	if c.TargetVMAF < 0 || c.TargetVMAF > 100 {
		return invalid(ErrInvalidVMAFTarget, "targetVMAF must be 0-100, got %v", c.TargetVMAF)
	}

	if c.Mode == ModeBitrate && c.TargetBitrate == 0 {
		return invalid(ErrInvalidBitrate, "bitrate mode requires targetBitrate")
	}

	needsSegments := c.Mode == ModeVMAF || (c.EnableVMAF && !c.VMAFFullComputation)
	if needsSegments && !c.VMAFAutoConfig && (c.VMAFSegmentCount == 0 || c.VMAFSegmentDuration == 0) {
		return invalid(ErrInvalidSegments, "count=%d duration=%d", c.VMAFSegmentCount, c.VMAFSegmentDuration)
	}

	if c.CRFAutoSkip && (c.CRFAutoSkipThreshold == 0 || c.CRFAutoSkipThreshold > MaxAutoSkipThreshold) {
		return invalid(ErrInvalidThreshold, "must be 1-%d, got %d", MaxAutoSkipThreshold, c.CRFAutoSkipThreshold)
	}

	return nil
}

// Known reports whether m is one of the four modes.
func (m Mode) Known() bool {
	_, err := ParseMode(string(m))
	return err == nil
}

func invalid(sentinel error, format string, args ...any) error {
	return errors.NewConfigError(fmt.Sprintf(format, args...), sentinel)
}

// VideoEncoderOrDefault returns the configured video encoder, or libx264.
func (c *CompressionConfig) VideoEncoderOrDefault() string {
	if c.VideoEncoder == "" {
		return DefaultVideoEncoder
	}
	return c.VideoEncoder
}

// AudioEncoderOrDefault returns the configured audio encoder, or aac.
func (c *CompressionConfig) AudioEncoderOrDefault() string {
	if c.AudioEncoder == "" {
		return DefaultAudioEncoder
	}
	return c.AudioEncoder
}

// VideoEncoderParams returns the custom params of the available video encoder whose
// value matches the selected one, or the default when none is selected.
func (c *CompressionConfig) VideoEncoderParams() []string {
	return encoderParams(c.AvailableVideoEncoders, c.VideoEncoderOrDefault())
}

// AudioEncoderParams returns the custom params of the selected audio encoder.
func (c *CompressionConfig) AudioEncoderParams() []string {
	return encoderParams(c.AvailableAudioEncoders, c.AudioEncoderOrDefault())
}

func encoderParams(defs []EncoderDef, value string) []string {
	for _, d := range defs {
		if d.Value == value {
			return d.CustomParams
		}
	}
	return nil
}

// CopyVideo reports whether the video stream is passed through untouched.
func (c *CompressionConfig) CopyVideo() bool {
	return c.Mode == ModeCopy
}

// Sampling returns the window plan settings used for quality scoring.
func (c *CompressionConfig) Sampling() segment.Sampling {
	return segment.Sampling{
		Count:    c.VMAFSegmentCount,
		Duration: float64(c.VMAFSegmentDuration),
		Auto:     c.VMAFAutoConfig,
	}
}
