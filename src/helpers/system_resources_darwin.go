//go:build darwin

package helpers

import (
	"os/exec"
	"strconv"
	"strings"
)

// totalSystemMemoryBytes asks sysctl for hw.memsize.
func totalSystemMemoryBytes() uint64 {
	out, err := exec.Command("sysctl", "-n", "hw.memsize").Output()
	if err != nil {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
