// Package spawn implements the fork/exec primitive used by an init or agent
// process to launch container entrypoints with a precisely controlled
// descriptor table, session / process group membership, controlling
// terminal, credentials and working directory.
//
// The child customizes itself between fork and exec using raw syscalls only
// and reports the errno of the first failed step to the parent over a one
// shot pipe; end of file on that pipe means the program image is live.
//
// pipe2, dup3 requires kernel >= 2.6.27
package spawn
