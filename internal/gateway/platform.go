package gateway

import (
	"strconv"
	"strings"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/driver"
)

// minMacOSMajor and minMacOSMinor are the oldest macOS release that can record.
const (
	minMacOSMajor = 10
	minMacOSMinor = 14
)

// macOSUnsupported is the reason reported on macOS releases that cannot record.
const macOSUnsupported = "Recording requires macOS 10.14 or higher"

// checkPlatform returns why this host cannot record, or "".
// A process started with the replay driver always supports recording.
func checkPlatform(cfg config.Config) string {
	if cfg.DriverPath == driver.ReplayDriverName {
		return ""
	}
	return platformUnsupportedReason()
}

// versionAtLeast reports whether a dotted version string is at least
// major.minor. Unparseable components count as 0.
func versionAtLeast(version string, major, minor int) bool {
	parts := strings.SplitN(strings.TrimSpace(version), ".", 3)
	num := func(i int) int {
		if i >= len(parts) {
			return 0
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0
		}
		return n
	}
	if num(0) != major {
		return num(0) > major
	}
	return num(1) >= minor
}
