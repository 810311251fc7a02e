//go:build darwin

package gateway

import "golang.org/x/sys/unix"

func platformUnsupportedReason() string {
	version, err := unix.Sysctl("kern.osproductversion")
	if err != nil {
		return ""
	}
	if !versionAtLeast(version, minMacOSMajor, minMacOSMinor) {
		return macOSUnsupported
	}
	return ""
}
