package spawn

import (
	"syscall"
)

// prepareExec converts the exec path, argv and env into the NUL terminated
// form expected by execve.
func prepareExec(exec string, args, env []string) (*byte, []*byte, []*byte, error) {
	if exec == "" && len(args) > 0 {
		exec = args[0]
	}
	argv0, err := syscall.BytePtrFromString(exec)
	if err != nil {
		return nil, nil, nil, err
	}
	argv, err := syscall.SlicePtrFromStrings(args)
	if err != nil {
		return nil, nil, nil, err
	}
	envv, err := syscall.SlicePtrFromStrings(env)
	if err != nil {
		return nil, nil, nil, err
	}
	return argv0, argv, envv, nil
}

// prepareFds copies the requested descriptor table and computes the
// relocation point for the sync pipe: one above both the highest source
// descriptor and the final positions, so the two pass shuffle can never
// stomp it.
func prepareFds(files []uintptr) ([]int, int) {
	fd := make([]int, len(files))
	nextfd := len(files)
	for i, ufd := range files {
		if nextfd < int(ufd) {
			nextfd = int(ufd)
		}
		fd[i] = int(ufd)
	}
	nextfd++
	return fd, nextfd
}

// syscallStringFromString prepares *byte if string is not empty, otherwise nil
func syscallStringFromString(str string) (*byte, error) {
	if str != "" {
		return syscall.BytePtrFromString(str)
	}
	return nil, nil
}
