//go:build windows

package gateway

import "os"

// abortExitCode is the status abort() exits with on windows.
const abortExitCode = 3

func abort() {
	os.Exit(abortExitCode)
}
