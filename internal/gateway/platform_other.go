//go:build !darwin

package gateway

func platformUnsupportedReason() string {
	return ""
}
