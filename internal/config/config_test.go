package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	vcerrors "github.com/five82/vcompress/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Mode != ModeCRF {
		t.Errorf("expected Mode=crf, got %s", cfg.Mode)
	}
	if cfg.TargetCRF != DefaultCRF {
		t.Errorf("expected TargetCRF=%v, got %v", DefaultCRF, cfg.TargetCRF)
	}
	if cfg.VideoEncoder != "libx264" || cfg.AudioEncoder != "aac" {
		t.Errorf("unexpected default encoders %s/%s", cfg.VideoEncoder, cfg.AudioEncoder)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name         string
		modify       func(*CompressionConfig)
		wantErr      bool
		wantSentinel error
	}{
		{
			name:    "default config is valid",
			modify:  func(c *CompressionConfig) {},
			wantErr: false,
		},
		{
			name:    "unknown mode degrades without error",
			modify:  func(c *CompressionConfig) { c.Mode = "quality" },
			wantErr: false,
		},
		{
			name:         "crf 64 is invalid",
			modify:       func(c *CompressionConfig) { c.TargetCRF = 64 },
			wantErr:      true,
			wantSentinel: ErrInvalidCRF,
		},
		{
			name:    "crf 63 is valid",
			modify:  func(c *CompressionConfig) { c.TargetCRF = 63 },
			wantErr: false,
		},
		{
			name:         "vmaf target above 100 is invalid",
			modify:       func(c *CompressionConfig) { c.TargetVMAF = 101 },
			wantErr:      true,
			wantSentinel: ErrInvalidVMAFTarget,
		},
		{
			name: "bitrate mode without bitrate is invalid",
			modify: func(c *CompressionConfig) {
				c.Mode = ModeBitrate
				c.TargetBitrate = 0
			},
			wantErr:      true,
			wantSentinel: ErrInvalidBitrate,
		},
		{
			name: "vmaf mode with zero segments is invalid",
			modify: func(c *CompressionConfig) {
				c.Mode = ModeVMAF
				c.VMAFSegmentCount = 0
			},
			wantErr:      true,
			wantSentinel: ErrInvalidSegments,
		},
		{
			name: "vmaf mode with auto config ignores segment count",
			modify: func(c *CompressionConfig) {
				c.Mode = ModeVMAF
				c.VMAFSegmentCount = 0
				c.VMAFAutoConfig = true
			},
			wantErr: false,
		},
		{
			name: "full computation does not need segments",
			modify: func(c *CompressionConfig) {
				c.EnableVMAF = true
				c.VMAFFullComputation = true
				c.VMAFSegmentDuration = 0
			},
			wantErr: false,
		},
		{
			name: "auto skip with zero threshold is invalid",
			modify: func(c *CompressionConfig) {
				c.CRFAutoSkip = true
				c.CRFAutoSkipThreshold = 0
			},
			wantErr:      true,
			wantSentinel: ErrInvalidThreshold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
				t.Errorf("Validate() error = %v, want sentinel %v", err, tt.wantSentinel)
			}
			if err != nil && !vcerrors.IsKind(err, vcerrors.KindConfig) {
				t.Errorf("Validate() error = %v, want KindConfig", err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"copy", ModeCopy, false},
		{"BITRATE", ModeBitrate, false},
		{" Crf ", ModeCRF, false},
		{"vmaf", ModeVMAF, false},
		{"cq", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidMode) {
				t.Errorf("expected ErrInvalidMode, got %v", err)
			}
		})
	}
}

func TestEncoderParams(t *testing.T) {
	cfg := Default()
	cfg.VideoEncoder = "libx265"
	cfg.AvailableVideoEncoders = []EncoderDef{
		{Name: "H.264", Value: "libx264", CustomParams: []string{"-preset slow"}},
		{Name: "HEVC", Value: "libx265", CustomParams: []string{"-preset medium", "-tag:v hvc1"}},
	}

	got := cfg.VideoEncoderParams()
	if len(got) != 2 || got[1] != "-tag:v hvc1" {
		t.Errorf("VideoEncoderParams() = %v", got)
	}
	if p := cfg.AudioEncoderParams(); p != nil {
		t.Errorf("AudioEncoderParams() = %v, want nil", p)
	}
}

func TestEncoderParamsUseDefaultEncoder(t *testing.T) {
	cfg := Default()
	cfg.VideoEncoder = ""
	cfg.AvailableVideoEncoders = []EncoderDef{{Value: DefaultVideoEncoder, CustomParams: []string{"-preset slow"}}}

	if got := cfg.VideoEncoderParams(); len(got) != 1 || got[0] != "-preset slow" {
		t.Errorf("VideoEncoderParams() = %v", got)
	}
}

func TestModeKnown(t *testing.T) {
	if !ModeVMAF.Known() || !Mode("CRF").Known() {
		t.Error("built-in modes should be known")
	}
	if Mode("quality").Known() {
		t.Error("quality should not be a known mode")
	}
}

func TestEncoderDefaults(t *testing.T) {
	cfg := &CompressionConfig{}
	if cfg.VideoEncoderOrDefault() != "libx264" {
		t.Errorf("VideoEncoderOrDefault() = %s", cfg.VideoEncoderOrDefault())
	}
	if cfg.AudioEncoderOrDefault() != "aac" {
		t.Errorf("AudioEncoderOrDefault() = %s", cfg.AudioEncoderOrDefault())
	}
}

func TestClone(t *testing.T) {
	cfg := Default()
	cfg.CustomFilters = []string{"-af loudnorm"}
	cfg.AvailableVideoEncoders = []EncoderDef{{Value: "libx264", CustomParams: []string{"-preset slow"}}}

	c := cfg.Clone()
	c.CustomFilters[0] = "changed"
	c.AvailableVideoEncoders[0].CustomParams[0] = "changed"

	if cfg.CustomFilters[0] != "-af loudnorm" || cfg.AvailableVideoEncoders[0].CustomParams[0] != "-preset slow" {
		t.Error("Clone() shares slices with the original")
	}
}

func TestMaxResolutionActive(t *testing.T) {
	tests := []struct {
		m    MaxResolution
		want bool
	}{
		{MaxResolution{Enabled: true, Width: 1920, Height: 1080}, true},
		{MaxResolution{Enabled: true, Width: 0, Height: 1080}, false},
		{MaxResolution{Enabled: false, Width: 1920, Height: 1080}, false},
	}
	for _, tt := range tests {
		if got := tt.m.Active(); got != tt.want {
			t.Errorf("%+v.Active() = %v, want %v", tt.m, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"c.toml": `compressionMode = "vmaf"
targetVMAF = 93.5
videoEncoder = "libsvtav1"

[maxResolution]
enabled = true
width = 1920
height = 1080
`,
		"c.yaml": `compressionMode: vmaf
targetVMAF: 93.5
videoEncoder: libsvtav1
maxResolution:
  enabled: true
  width: 1920
  height: 1080
`,
		"c.json": `{"compressionMode":"vmaf","targetVMAF":93.5,"videoEncoder":"libsvtav1",
"maxResolution":{"enabled":true,"width":1920,"height":1080}}`,
	}

	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Mode != ModeVMAF || cfg.TargetVMAF != 93.5 || cfg.VideoEncoder != "libsvtav1" {
				t.Errorf("unexpected config: %+v", cfg)
			}
			if !cfg.MaxResolution.Active() || cfg.MaxResolution.Width != 1920 {
				t.Errorf("maxResolution = %+v", cfg.MaxResolution)
			}
			// Keys absent from the file keep defaults.
			if cfg.AudioEncoder != DefaultAudioEncoder {
				t.Errorf("AudioEncoder = %q, want default", cfg.AudioEncoder)
			}
		})
	}
}

func TestLoadUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.ini")
	if err := os.WriteFile(path, []byte("x=1"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSampling(t *testing.T) {
	cfg := Default()
	cfg.VMAFSegmentCount = 4
	cfg.VMAFSegmentDuration = 15
	cfg.VMAFAutoConfig = true

	s := cfg.Sampling()
	if s.Count != 4 || s.Duration != 15 || !s.Auto {
		t.Errorf("Sampling() = %+v", s)
	}
}
