package vmaf

import (
	"path/filepath"
	"strings"

	"github.com/five82/vcompress/internal/util"
)

// EscapeFilterPath makes a path safe inside a libvmaf option value: absolute,
// forward slashes, and every ':' escaped for the filtergraph parser.
func EscapeFilterPath(path string) string {
	p := util.CanonicalPath(path)
	if !filepath.IsAbs(p) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}
	p = strings.TrimPrefix(p, `\\?\`)
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.ReplaceAll(p, ":", `\\\:`)
}

// Options builds the libvmaf option string.
type Options struct {
	parts []string
}

// NewOptions starts an option string for the given model file.
func NewOptions(modelPath string) *Options {
	return &Options{parts: []string{"model='path=" + EscapeFilterPath(modelPath) + "'"}}
}

// WithJSONLog writes per-frame and pooled metrics to path.
func (o *Options) WithJSONLog(path string) *Options {
	o.parts = append(o.parts, "log_fmt=json", "log_path='"+EscapeFilterPath(path)+"'")
	return o
}

// AddCustom appends user supplied key=value options. Blank entries are skipped.
func (o *Options) AddCustom(params []string) *Options {
	for _, p := range params {
		if p = strings.TrimSpace(p); p != "" {
			o.parts = append(o.parts, p)
		}
	}
	return o
}

// Build returns the option string.
func (o *Options) Build() string {
	return strings.Join(o.parts, ":")
}

// FilterGraph returns the filter_complex that scores input 0 against input 1.
func FilterGraph(cuda bool, opts string) string {
	if cuda {
		return "[0:v]scale_cuda=format=yuv420p[dis];[1:v]scale_cuda=format=yuv420p[ref];[dis][ref]libvmaf_cuda=" + opts
	}
	return "[0:v]setpts=PTS-STARTPTS,format=yuv420p[dis];[1:v]setpts=PTS-STARTPTS,format=yuv420p[ref];[dis][ref]libvmaf=" + opts
}

// CUDADecoder maps a codec name to its cuvid decoder.
func CUDADecoder(codec string) (string, bool) {
	switch codec {
	case "h264":
		return "h264_cuvid", true
	case "hevc":
		return "hevc_cuvid", true
	case "vp9":
		return "vp9_cuvid", true
	case "av1":
		return "av1_cuvid", true
	case "mpeg2video", "mpeg2":
		return "mpeg2_cuvid", true
	case "vc1":
		return "vc1_cuvid", true
	case "vp8":
		return "vp8_cuvid", true
	case "mjpeg":
		return "mjpeg_cuvid", true
	}
	return "", false
}
