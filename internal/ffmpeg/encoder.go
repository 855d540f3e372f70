// Package ffmpeg builds ffmpeg argument lists, runs ffmpeg processes and parses
// their progress output.
package ffmpeg

import (
	"strconv"
	"strings"
)

// CRFFlag returns the quality flag understood by the encoder family.
func CRFFlag(encoder string) string {
	switch {
	case strings.Contains(encoder, "nvenc"):
		return "-cq"
	case strings.Contains(encoder, "libx264"),
		strings.Contains(encoder, "libx265"),
		strings.Contains(encoder, "libsvtav1"),
		strings.Contains(encoder, "vp9"),
		strings.Contains(encoder, "libvpx"):
		return "-crf"
	default:
		return "-q:v"
	}
}

// FormatCRF renders a CRF with the shortest exact representation (23, 23.5).
func FormatCRF(crf float64) string {
	return strconv.FormatFloat(crf, 'f', -1, 64)
}

// SplitTokens splits each entry on whitespace and drops empty entries, so
// "-preset slow" becomes two arguments.
func SplitTokens(entries []string) []string {
	var out []string
	for _, e := range entries {
		out = append(out, strings.Fields(e)...)
	}
	return out
}
