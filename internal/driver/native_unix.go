//go:build !windows

package driver

var requiredNativeLockKinds = []LockKind{LockKindPthreadMutex}
