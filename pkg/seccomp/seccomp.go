// Package seccomp provides a compiled BPF filter format for the seccomp
// syscall and a builder that assembles one from syscall names.
package seccomp
