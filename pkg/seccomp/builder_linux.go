package seccomp

import (
	"syscall"

	libseccomp "github.com/elastic/go-seccomp-bpf"
	"github.com/pkg/errors"
	"golang.org/x/net/bpf"
)

// Builder is used to build the filter from syscall names
type Builder struct {
	// Allow lists syscalls permitted regardless of Default.
	Allow []string
	// Errno lists syscalls that fail with EPERM instead of executing.
	Errno []string
	// Default is the action for everything not listed. The zero value
	// means allow.
	Default libseccomp.Action
}

// Build assembles the policy into a kernel loadable BPF filter
func (b *Builder) Build() (Filter, error) {
	def := b.Default
	if def == 0 {
		def = libseccomp.ActionAllow
	}

	var groups []libseccomp.SyscallGroup
	if len(b.Allow) > 0 {
		groups = append(groups, libseccomp.SyscallGroup{
			Action: libseccomp.ActionAllow,
			Names:  b.Allow,
		})
	}
	if len(b.Errno) > 0 {
		// the low 16 bits of the action carry the errno handed to the
		// denied caller
		groups = append(groups, libseccomp.SyscallGroup{
			Action: libseccomp.ActionErrno | libseccomp.Action(syscall.EPERM),
			Names:  b.Errno,
		})
	}

	// the policy assembler rejects an empty syscall list; with nothing
	// listed the whole filter is one return of the default action
	if len(groups) == 0 {
		return assembleRaw([]bpf.Instruction{bpf.RetConstant{Val: uint32(def)}})
	}

	policy := libseccomp.Policy{
		DefaultAction: def,
		Syscalls:      groups,
	}
	insts, err := policy.Assemble()
	if err != nil {
		return nil, errors.Wrap(err, "assembling seccomp policy")
	}
	return assembleRaw(insts)
}

func assembleRaw(insts []bpf.Instruction) (Filter, error) {
	raw, err := bpf.Assemble(insts)
	if err != nil {
		return nil, errors.Wrap(err, "assembling bpf program")
	}
	filter := make(Filter, 0, len(raw))
	for _, ins := range raw {
		filter = append(filter, syscall.SockFilter{
			Code: ins.Op,
			Jt:   ins.Jt,
			Jf:   ins.Jf,
			K:    ins.K,
		})
	}
	return filter, nil
}
