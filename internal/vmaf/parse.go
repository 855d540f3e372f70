package vmaf

import (
	"encoding/json"
	"regexp"
	"strconv"
)

type logFile struct {
	PooledMetrics struct {
		VMAF struct {
			Mean *float64 `json:"mean"`
		} `json:"vmaf"`
	} `json:"pooled_metrics"`
}

// ParseLog reads the pooled mean from a libvmaf JSON log.
func ParseLog(data []byte) (float64, bool) {
	var log logFile
	if err := json.Unmarshal(data, &log); err != nil {
		return 0, false
	}
	if log.PooledMetrics.VMAF.Mean == nil {
		return 0, false
	}
	return *log.PooledMetrics.VMAF.Mean, true
}

var stderrScorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`VMAF score:\s*([0-9]+(?:\.[0-9]+)?)`),
	regexp.MustCompile(`VMAF score\s*=\s*([0-9]+(?:\.[0-9]+)?)`),
}

// ParseStderr extracts the score libvmaf prints at the end of a run.
func ParseStderr(stderr string) (float64, bool) {
	for _, re := range stderrScorePatterns {
		m := re.FindStringSubmatch(stderr)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
