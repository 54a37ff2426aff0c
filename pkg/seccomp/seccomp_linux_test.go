package seccomp

import (
	"syscall"
	"testing"

	libseccomp "github.com/elastic/go-seccomp-bpf"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	b := Builder{
		Errno: []string{"chroot", "reboot"},
	}
	filter, err := b.Build()
	require.NoError(t, err)
	require.NotEmpty(t, filter)

	prog := filter.SockFprog()
	require.NotNil(t, prog.Filter)
	require.EqualValues(t, len(filter), prog.Len)
}

func TestBuild_AllowList(t *testing.T) {
	b := Builder{
		Allow: []string{"read", "write", "execve", "exit_group"},
		Errno: []string{"socket"},
	}
	filter, err := b.Build()
	require.NoError(t, err)
	require.NotEmpty(t, filter)
}

func TestBuild_UnknownSyscall(t *testing.T) {
	b := Builder{
		Errno: []string{"not_a_syscall"},
	}
	_, err := b.Build()
	require.Error(t, err)
}

func TestBuild_Empty(t *testing.T) {
	// no groups at all still yields a loadable allow-everything program
	filter, err := (&Builder{}).Build()
	require.NoError(t, err)
	require.NotEmpty(t, filter)

	prog := filter.SockFprog()
	require.NotNil(t, prog.Filter)
	require.EqualValues(t, len(filter), prog.Len)

	const retK = 0x06 // BPF_RET | BPF_K
	require.EqualValues(t, retK, filter[0].Code)
	require.EqualValues(t, uint32(libseccomp.ActionAllow), filter[0].K)
}

func TestBuild_ErrnoCarriesEPERM(t *testing.T) {
	filter, err := (&Builder{Errno: []string{"chroot"}}).Build()
	require.NoError(t, err)

	const retK = 0x06 // BPF_RET | BPF_K
	want := uint32(libseccomp.ActionErrno) | uint32(syscall.EPERM)
	found := false
	for _, ins := range filter {
		if ins.Code == retK && ins.K == want {
			found = true
		}
	}
	require.True(t, found, "no return of errno EPERM in the program")
}
