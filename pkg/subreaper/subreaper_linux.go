// Package subreaper marks the calling process as the reaper of orphaned
// descendants, so that a grandchild whose direct parent exits is reparented
// here instead of to pid 1.
package subreaper

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Set marks the calling process as a child subreaper. The effect is process
// wide and idempotent; calling it again is harmless. An error means the
// kernel lacks the feature (pre 3.4) or the caller lacks the privilege, and
// it is up to the caller whether that is fatal.
func Set() error {
	return unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0)
}

// Get reports whether the calling process is currently a child subreaper.
func Get() (bool, error) {
	var v int
	if err := unix.Prctl(unix.PR_GET_CHILD_SUBREAPER, uintptr(unsafe.Pointer(&v)), 0, 0, 0); err != nil {
		return false, err
	}
	return v == 1, nil
}

// Syscall2 invokes a numbered system call with two arguments. It performs
// no validation of the call number or argument semantics; correctness is
// entirely the caller's responsibility. It exists to reach process wide
// controls that have no wrapper here, and subreaper registration is the
// only sanctioned caller.
func Syscall2(trap, a1, a2 uintptr) (uintptr, syscall.Errno) {
	r1, _, errno := syscall.RawSyscall(trap, a1, a2, 0)
	return r1, errno
}
