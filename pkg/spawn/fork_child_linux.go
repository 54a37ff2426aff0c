package spawn

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// highest signal number the kernel knows about and the byte size of
	// the kernel sigset passed to rt_sigaction / rt_sigprocmask
	numSig      = 64
	sigsetBytes = 8

	seccompSetModeFilter   = 1
	seccompFilterFlagTsync = 1
)

// kernelSigaction mirrors the kernel's struct sigaction on linux. The zero
// value requests SIG_DFL with an empty handler mask.
type kernelSigaction struct {
	handler  uintptr
	flags    uintptr
	restorer uintptr
	mask     uint64
}

// forkAndExecInChild forks and, in the child, renumbers the descriptor
// table, applies the Runner's attributes and execs the program image. The
// child half runs between fork and exec where only value-copied inputs and
// raw syscalls are safe: it must not allocate, create threads or call into
// anything that might.
//
// Any failed step jumps to a single failure handler that writes the errno
// to the sync pipe and exits 127 without returning to shared code.
//
// Reference to src/syscall/exec_linux.go
//
//go:norace
func forkAndExecInChild(r *Runner, argv0 *byte, argv, env []*byte, workdir *byte, p [2]int) (r1 uintptr, err1 syscall.Errno) {
	// avoid side effects on the caller's slice by shuffling a copy
	fd, nextfd := prepareFds(r.Files)
	pipe := p[1]

	var (
		sigdfl   kernelSigaction
		emptyset uint64
		rlim     syscall.Rlimit
		errno    int32
		i        int
		n        uintptr
	)

	// Acquire the fork lock so that no other threads
	// create new fds that are not yet close-on-exec
	// before we fork.
	syscall.ForkLock.Lock()

	// About to call fork.
	// No more allocation or calls of non-assembly functions.
	beforeFork()

	r1, _, err1 = syscall.RawSyscall6(syscall.SYS_CLONE, uintptr(syscall.SIGCHLD), 0, 0, 0, 0, 0)
	if err1 != 0 || r1 != 0 {
		// in parent process, immediate return
		return
	}

	// In child process
	afterForkInChild()
	// Notice: cannot call any GO functions beyond this point

	// Close the parent's end of the pipe
	if _, _, err1 = syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(p[0]), 0, 0); err1 != 0 {
		goto childerror
	}

	// Reset every signal disposition to the default. SIGKILL and SIGSTOP
	// reject the call; rejections are not errors here.
	for i = 1; i <= numSig; i++ {
		syscall.RawSyscall6(unix.SYS_RT_SIGACTION, uintptr(i), uintptr(unsafe.Pointer(&sigdfl)), 0, sigsetBytes, 0, 0)
	}

	// Clear the signal mask entirely, a stronger reset than any caller
	// supplied mask (Attr.Mask is reserved, not applied).
	if _, _, err1 = syscall.RawSyscall6(unix.SYS_RT_SIGPROCMASK, uintptr(unix.SIG_SETMASK), uintptr(unsafe.Pointer(&emptyset)), 0, sigsetBytes, 0, 0); err1 != 0 {
		goto childerror
	}

	// Descriptor renumbering. Relocate the sync pipe above everything the
	// shuffle will touch, then move every source that is not already in
	// place above the pipe (pass 1) and dup it down onto its final
	// position (pass 2). The detour avoids overwriting a source another
	// position still needs when final and source ranges overlap.
	if pipe < nextfd {
		if _, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(pipe), uintptr(nextfd), syscall.O_CLOEXEC); err1 != 0 {
			goto childerror
		}
		if _, _, err1 = syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(pipe), 0, 0); err1 != 0 {
			goto childerror
		}
		pipe = nextfd
	}
	nextfd = pipe + 1

	// the pipe must survive the shuffle but never the exec
	if _, _, err1 = syscall.RawSyscall(syscall.SYS_FCNTL, uintptr(pipe), syscall.F_SETFD, syscall.FD_CLOEXEC); err1 != 0 {
		goto childerror
	}

	// Pass 1: fd[i] != i => nextfd
	for i = 0; i < len(fd); i++ {
		if fd[i] == i {
			continue
		}
		if _, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(fd[i]), uintptr(nextfd), syscall.O_CLOEXEC); err1 != 0 {
			goto childerror
		}
		fd[i] = nextfd
		nextfd++
	}

	// Pass 2: fd[i] => i, then let the final positions survive the exec
	for i = 0; i < len(fd); i++ {
		if fd[i] != i {
			if _, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(fd[i]), uintptr(i), 0); err1 != 0 {
				goto childerror
			}
		}
		// dup3(fd, fd) is rejected, so a source already in place may
		// still carry close-on-exec; clear the flag either way
		if _, _, err1 = syscall.RawSyscall(syscall.SYS_FCNTL, uintptr(i), syscall.F_SETFD, 0); err1 != 0 {
			goto childerror
		}
	}

	// Session, process group and controlling terminal, in this fixed
	// order.
	if r.Attr.SetSid {
		if _, _, err1 = syscall.RawSyscall(syscall.SYS_SETSID, 0, 0, 0); err1 != 0 {
			goto childerror
		}
	}

	if r.Attr.SetPgid {
		if _, _, err1 = syscall.RawSyscall(syscall.SYS_SETPGID, 0, uintptr(r.Attr.Pgid), 0); err1 != 0 {
			goto childerror
		}
	}

	if r.Attr.SetCtty {
		if _, _, err1 = syscall.RawSyscall(syscall.SYS_IOCTL, r.Attr.Ctty, uintptr(syscall.TIOCSCTTY), 0); err1 != 0 {
			goto childerror
		}
	}

	// Mark everything outside the child's table close-on-exec, up to the
	// open descriptor limit. EBADF means the slot is simply not open.
	if _, _, err1 = syscall.RawSyscall6(syscall.SYS_PRLIMIT64, 0, syscall.RLIMIT_NOFILE, 0, uintptr(unsafe.Pointer(&rlim)), 0, 0); err1 != 0 {
		goto childerror
	}
	for i = len(fd); uint64(i) <= rlim.Cur; i++ {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_FCNTL, uintptr(i), syscall.F_SETFD, syscall.FD_CLOEXEC)
		if err1 != 0 && err1 != syscall.EBADF {
			goto childerror
		}
	}
	err1 = 0

	// Set limits
	for i = 0; i < len(r.RLimits); i++ {
		// prlimit instead of setrlimit to avoid 32-bit limitation (linux > 3.2)
		if _, _, err1 = syscall.RawSyscall6(syscall.SYS_PRLIMIT64, 0, uintptr(r.RLimits[i].Res), uintptr(unsafe.Pointer(&r.RLimits[i].Rlim)), 0, 0, 0); err1 != 0 {
			goto childerror
		}
	}

	// Credentials: group first, the privilege to change it is usually
	// gone once the uid is dropped.
	if r.Attr.GID >= 0 {
		if _, _, err1 = syscall.RawSyscall(unix.SYS_SETGID, uintptr(r.Attr.GID), 0, 0); err1 != 0 {
			goto childerror
		}
	}

	if r.Attr.UID >= 0 {
		// both real and effective
		if _, _, err1 = syscall.RawSyscall(unix.SYS_SETREUID, uintptr(r.Attr.UID), uintptr(r.Attr.UID), 0); err1 != 0 {
			goto childerror
		}
	}

	// chdir for child
	if workdir != nil {
		if _, _, err1 = syscall.RawSyscall(syscall.SYS_CHDIR, uintptr(unsafe.Pointer(workdir)), 0, 0); err1 != 0 {
			goto childerror
		}
	}

	// No new privs, required before an unprivileged seccomp load
	if r.NoNewPrivs || r.Seccomp != nil {
		if _, _, err1 = syscall.RawSyscall6(syscall.SYS_PRCTL, unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0, 0); err1 != 0 {
			goto childerror
		}
	}

	// Load seccomp filter
	if r.Seccomp != nil {
		if _, _, err1 = syscall.RawSyscall(unix.SYS_SECCOMP, seccompSetModeFilter, seccompFilterFlagTsync, uintptr(unsafe.Pointer(r.Seccomp))); err1 != 0 {
			goto childerror
		}
	}

	// Time to exec.
	_, _, err1 = syscall.RawSyscall(unix.SYS_EXECVE, uintptr(unsafe.Pointer(argv0)),
		uintptr(unsafe.Pointer(&argv[0])), uintptr(unsafe.Pointer(&env[0])))

childerror:
	// report the errno of the failed step on the (relocated) pipe,
	// retrying until the 4 bytes are through or the pipe itself is gone
	errno = int32(err1)
	for {
		n, _, err1 = syscall.RawSyscall(unix.SYS_WRITE, uintptr(pipe), uintptr(unsafe.Pointer(&errno)), unsafe.Sizeof(errno))
		if n == unsafe.Sizeof(errno) || err1 == syscall.EBADF || err1 == syscall.EPIPE {
			break
		}
	}
	for {
		syscall.RawSyscall(syscall.SYS_EXIT_GROUP, 127, 0, 0)
	}
	// cannot reach this point
}
