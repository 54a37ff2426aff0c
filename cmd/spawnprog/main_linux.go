// Command spawnprog launches a program with a controlled descriptor table,
// session / group / terminal attributes, resource limits and an optional
// syscall deny list. It doubles as a manual test harness for the spawn
// package.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/guestkit/go-spawn/pkg/rlimit"
	"github.com/guestkit/go-spawn/pkg/seccomp"
	"github.com/guestkit/go-spawn/pkg/spawn"
	"github.com/guestkit/go-spawn/pkg/subreaper"
)

var (
	workDir    = pflag.String("workdir", "", "working directory for the child")
	uid        = pflag.Int("uid", -1, "user id to run the child as")
	gid        = pflag.Int("gid", -1, "group id to run the child as")
	setSid     = pflag.Bool("setsid", false, "start the child in a new session")
	setCtty    = pflag.Bool("setctty", false, "acquire the terminal on descriptor --ctty as controlling terminal")
	ctty       = pflag.Int("ctty", 0, "child descriptor of the terminal for --setctty")
	pgid       = pflag.Int("pgid", -1, "process group to join (0 creates a new group)")
	passFds    = pflag.IntSlice("pass-fd", nil, "extra descriptors appended to the child table after stdio")
	reaper     = pflag.Bool("subreaper", false, "register as child subreaper before spawning")
	env        = pflag.StringArray("env", nil, "child environment, KEY=VALUE (repeatable)")
	deny       = pflag.StringSlice("deny-syscall", nil, "syscalls that fail with EPERM in the child")
	openFiles  = pflag.Uint64("max-open-files", 0, "RLIMIT_NOFILE for the child")
	cpuLimit   = pflag.Uint64("max-cpu", 0, "RLIMIT_CPU for the child, in seconds")
	noNewPrivs = pflag.Bool("no-new-privs", false, "disable setuid binaries for the child")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <program> [args...]\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	if *reaper {
		if err := subreaper.Set(); err != nil {
			slog.Error("registering as subreaper", "error", err)
			os.Exit(125)
		}
	}

	attr := spawn.NewAttr()
	attr.SetSid = *setSid
	attr.UID = *uid
	attr.GID = *gid
	if *pgid >= 0 {
		attr.SetPgid = true
		attr.Pgid = *pgid
	}
	if *setCtty {
		attr.SetCtty = true
		attr.Ctty = uintptr(*ctty)
	}

	// the child always gets the caller's stdio on 0..2; --pass-fd
	// descriptors land on 3 upward in flag order
	files := []uintptr{0, 1, 2}
	for _, fd := range *passFds {
		files = append(files, uintptr(fd))
	}

	limits := rlimit.RLimits{CPU: *cpuLimit, OpenFile: *openFiles}

	r := spawn.Runner{
		Exec:       args[0],
		Args:       args,
		Env:        *env,
		Files:      files,
		WorkDir:    *workDir,
		Attr:       attr,
		RLimits:    limits.PrepareRLimit(),
		NoNewPrivs: *noNewPrivs,
	}

	if len(*deny) > 0 {
		filter, err := (&seccomp.Builder{Errno: *deny}).Build()
		if err != nil {
			slog.Error("building seccomp filter", "error", err)
			os.Exit(125)
		}
		r.Seccomp = filter.SockFprog()
	}

	pid, err := r.Start()
	if err != nil {
		slog.Error("spawn failed", "exec", args[0], "error", err)
		os.Exit(125)
	}

	var ws unix.WaitStatus
	_, err = unix.Wait4(pid, &ws, 0, nil)
	for err == unix.EINTR {
		_, err = unix.Wait4(pid, &ws, 0, nil)
	}
	if err != nil {
		slog.Error("waiting for child", "pid", pid, "error", err)
		os.Exit(125)
	}

	switch {
	case ws.Exited():
		os.Exit(ws.ExitStatus())
	case ws.Signaled():
		os.Exit(128 + int(ws.Signal()))
	default:
		os.Exit(125)
	}
}
