//go:build windows

package driver

var requiredNativeLockKinds = []LockKind{LockKindCriticalSection, LockKindSRWLock}
