package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// DefaultJobs returns how many compression jobs to run at once when the user
// does not say. Each ffmpeg already uses every core, so this stays small.
func DefaultJobs() int {
	return max(PhysicalCores()/8, 1)
}

// PhysicalCores returns the number of physical CPU cores. When the topology
// cannot be read it assumes two hardware threads per core.
func PhysicalCores() int {
	if n := physicalCores(); n > 0 {
		return n
	}
	return max(runtime.NumCPU()/2, 1)
}

// countCores counts the distinct package:core pairs under a sysfs cpu
// directory. It returns 0 when nothing could be read.
func countCores(cpuDir string) int {
	entries, err := os.ReadDir(cpuDir)
	if err != nil {
		return 0
	}

	seen := make(map[string]struct{})
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), "cpu")
		if !ok || suffix == "" {
			continue
		}
		if _, err := strconv.Atoi(suffix); err != nil {
			continue
		}

		topology := filepath.Join(cpuDir, e.Name(), "topology")
		core, err := os.ReadFile(filepath.Join(topology, "core_id"))
		if err != nil {
			continue
		}
		id := strings.TrimSpace(string(core))
		if pkg, err := os.ReadFile(filepath.Join(topology, "physical_package_id")); err == nil {
			id = strings.TrimSpace(string(pkg)) + ":" + id
		}
		seen[id] = struct{}{}
	}
	return len(seen)
}
