package spawn

import (
	"syscall"

	"github.com/guestkit/go-spawn/pkg/rlimit"
)

// Runner is the full description of a single spawn: the program image, the
// child's descriptor table and the attributes applied between fork and
// exec. A Runner is only read during Start and may be reused afterwards.
type Runner struct {
	// Exec is the path of the executable image. If empty, Args[0] is
	// used.
	Exec string

	// argv and env for the execve syscall. Args[0] conventionally
	// mirrors the executable path.
	Args []string
	Env  []string

	// Files is the child's descriptor table: the descriptor open on
	// Files[i] in the calling process becomes descriptor i in the
	// executed program. Values may repeat and may collide with final
	// positions; the renumbering in the child tolerates both. Every
	// descriptor outside 0..len(Files)-1 is closed at exec time.
	Files []uintptr

	// WorkDir is the working directory for the child, applied after
	// credential changes. Empty means inherit.
	WorkDir string

	// Attr carries session / group / terminal / identity changes.
	Attr Attr

	// RLimits are POSIX resource limits applied through prlimit64.
	RLimits []rlimit.RLimit

	// Seccomp is a BPF syscall filter loaded right before exec with
	// SECCOMP_FILTER_FLAG_TSYNC. Loading a filter implies no_new_privs.
	Seccomp *syscall.SockFprog

	// NoNewPrivs calls prctl(PR_SET_NO_NEW_PRIVS) even without a seccomp
	// filter, disabling setuid binaries for the child.
	NoNewPrivs bool
}
