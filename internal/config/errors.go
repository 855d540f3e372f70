// Package config provides configuration types and defaults for vcompress.
package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidMode indicates an unknown compression mode.
	ErrInvalidMode = errors.New("invalid compression mode")

	// ErrInvalidCRF indicates a CRF value outside the valid 0-63 range.
	ErrInvalidCRF = errors.New("CRF value out of range")

	// ErrInvalidVMAFTarget indicates a VMAF target outside 0-100.
	ErrInvalidVMAFTarget = errors.New("VMAF target out of range")

	// ErrInvalidBitrate indicates bitrate mode without a positive target.
	ErrInvalidBitrate = errors.New("target bitrate must be positive")

	// ErrInvalidSegments indicates a negative or zero segment setup for sampled scoring.
	ErrInvalidSegments = errors.New("invalid VMAF segment settings")

	// ErrInvalidThreshold indicates an auto-skip threshold outside 1-1000 percent.
	ErrInvalidThreshold = errors.New("auto-skip threshold out of range")

	// ErrUnsupportedFormat indicates a config file extension with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported config file format")
)
