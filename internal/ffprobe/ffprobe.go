// Package ffprobe extracts media information using ffprobe.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/five82/vcompress/internal/errors"
	"github.com/five82/vcompress/internal/media"
)

// ffprobeOutput represents the JSON output from ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int64  `json:"width"`
	Height    int64  `json:"height"`
}

// ToolPath returns the ffprobe binary that sits next to ffmpegPath. A bare
// "ffmpeg" resolves to a bare "ffprobe" so PATH lookup still applies.
func ToolPath(ffmpegPath string) string {
	name := "ffprobe"
	if strings.HasSuffix(strings.ToLower(ffmpegPath), ".exe") {
		name = "ffprobe.exe"
	}
	dir := filepath.Dir(ffmpegPath)
	if dir == "." && !strings.ContainsRune(ffmpegPath, filepath.Separator) {
		return name
	}
	return filepath.Join(dir, name)
}

// GetVideoInfo probes path and returns a Pending VideoInfo for it.
func GetVideoInfo(ctx context.Context, ffprobePath, path string) (*media.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, errors.WrapExecError(ffprobePath, err, strings.TrimSpace(stderr.String()))
	}

	probe, err := parseFFprobeOutput(out)
	if err != nil {
		return nil, err
	}
	return extractVideoInfo(probe, path)
}

func parseFFprobeOutput(data []byte) (*ffprobeOutput, error) {
	var result ffprobeOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewFFprobeParseError("failed to parse ffprobe output", err)
	}
	return &result, nil
}

func extractVideoInfo(probe *ffprobeOutput, path string) (*media.VideoInfo, error) {
	var video *ffprobeStream
	for i := range probe.Streams {
		if probe.Streams[i].CodecType == "video" {
			video = &probe.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, errors.NewVideoInfoError(fmt.Sprintf("no video stream found in %s", path))
	}

	info := &media.VideoInfo{
		Name:       filepath.Base(path),
		Path:       path,
		Width:      uint32(max(video.Width, 0)),
		Height:     uint32(max(video.Height, 0)),
		Resolution: fmt.Sprintf("%dx%d", max(video.Width, 0), max(video.Height, 0)),
		Codec:      video.CodecName,
		Status:     media.StatusPending,
	}
	if info.Codec == "" {
		info.Codec = "unknown"
	}

	if size, err := strconv.ParseUint(probe.Format.Size, 10, 64); err == nil {
		info.Size = size
	}
	if bps, err := strconv.ParseFloat(probe.Format.BitRate, 64); err == nil {
		info.BitrateKbps = media.Ptr(bps / 1000)
	}
	info.Bitrate = media.FormatBitrate(info.BitrateKbps)
	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.DurationSec = d
	}

	return info, nil
}
