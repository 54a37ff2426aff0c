package seccomp

import (
	"syscall"
)

// Filter is a compiled BPF seccomp filter, ready to hand to the seccomp
// syscall.
type Filter []syscall.SockFilter

// SockFprog converts a non-empty Filter to SockFprog for the seccomp
// syscall.
func (f Filter) SockFprog() *syscall.SockFprog {
	b := []syscall.SockFilter(f)
	return &syscall.SockFprog{
		Len:    uint16(len(b)),
		Filter: &b[0],
	}
}
