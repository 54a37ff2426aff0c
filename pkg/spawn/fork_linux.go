package spawn

import (
	"syscall"
	"unsafe" // required for go:linkname.

	"golang.org/x/sys/unix"
)

//go:linkname beforeFork syscall.runtime_BeforeFork
func beforeFork()

//go:linkname afterFork syscall.runtime_AfterFork
func afterFork()

//go:linkname afterForkInChild syscall.runtime_AfterForkInChild
func afterForkInChild()

// Start forks the calling process, applies the descriptor table and
// attributes in the child and replaces its program image. It returns the
// pid of the child once exec has succeeded, or the errno of the first
// failed step as a syscall.Errno. On a reported child failure the child is
// reaped before Start returns, so no zombie is left behind.
//
// The runtime blocks all signals on the calling thread for the duration of
// the fork and restores the previous mask on every return path; between
// fork and the child's own signal reset no signal is delivered to either
// side.
func (r *Runner) Start() (int, error) {
	argv0, argv, env, err := prepareExec(r.Exec, r.Args, r.Env)
	if err != nil {
		return 0, err
	}

	workdir, err := syscallStringFromString(r.WorkDir)
	if err != nil {
		return 0, err
	}

	// sync pipe used exactly once: the child writes the errno of a failed
	// step as 4 raw bytes, or exec closes its end
	var p [2]int
	if err := syscall.Pipe2(p[:], syscall.O_CLOEXEC); err != nil {
		return 0, err
	}

	pid, err1 := forkAndExecInChild(r, argv0, argv, env, workdir, p)

	// restore all signals
	afterFork()
	syscall.ForkLock.Unlock()

	return syncWithChild(p, int(pid), err1)
}

// syncWithChild closes the child's end of the pipe and blocks until the
// child either reaches exec (end of file) or reports the errno of a failed
// step.
func syncWithChild(p [2]int, pid int, err1 syscall.Errno) (int, error) {
	var errno int32

	unix.Close(p[1])

	// fork failed, no child exists
	if err1 != 0 {
		unix.Close(p[0])
		return 0, err1
	}

	n, err2 := readChildErrno(p[0], &errno)
	unix.Close(p[0])

	switch {
	case err2 != 0:
		// broken sync channel, child state unknown
		reapChild(pid)
		return 0, err2
	case n == int(unsafe.Sizeof(errno)):
		reapChild(pid)
		return 0, syscall.Errno(errno)
	default:
		// end of file, the program image is live. Anything short of the
		// full code also counts as success: pipe writes of 4 bytes are
		// atomic, so a partial error report cannot occur.
		return pid, nil
	}
}

// readChildErrno blocks reading the 4 byte error code, retrying interrupted
// reads. There is deliberately no timeout: a child stuck before exec hangs
// the caller, who may only resolve it out of band via the pid.
func readChildErrno(fd int, errno *int32) (int, syscall.Errno) {
	for {
		r1, _, err1 := syscall.RawSyscall(syscall.SYS_READ, uintptr(fd), uintptr(unsafe.Pointer(errno)), unsafe.Sizeof(*errno))
		if err1 == syscall.EINTR {
			continue
		}
		if err1 != 0 {
			return 0, err1
		}
		return int(r1), 0
	}
}

// reapChild waits for a failed child so the zombie does not accumulate.
// Best effort: the wait error never overrides the reported spawn error.
func reapChild(pid int) {
	var wstatus syscall.WaitStatus
	_, err := syscall.Wait4(pid, &wstatus, 0, nil)
	for err == syscall.EINTR {
		_, err = syscall.Wait4(pid, &wstatus, 0, nil)
	}
}
