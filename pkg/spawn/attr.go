package spawn

// Attr describes the process attributes applied in the child between fork
// and exec. Attrs are value copied into the spawn call and never shared
// with the spawned process beyond their logical effects.
type Attr struct {
	// SetPgid moves the child into process group Pgid. Pgid 0 creates a
	// new group led by the child.
	SetPgid bool
	Pgid    int

	// SetSid detaches from the controlling terminal and starts a new
	// session with the child as its leader.
	SetSid bool

	// SetCtty acquires the terminal open on descriptor Ctty as the
	// controlling terminal. Ctty is a descriptor number in the child
	// after renumbering, i.e. one of the final positions 0..len(Files)-1.
	SetCtty bool
	Ctty    uintptr

	// UID and GID set the real and effective user / group id of the
	// child. Negative values leave the ids unchanged. GID is applied
	// before UID since the privilege to change groups is usually lost
	// once the uid is dropped.
	UID int
	GID int

	// Mask is reserved for a caller supplied signal mask. It is read but
	// not applied: the child always resets to the empty mask before exec.
	Mask uint64
}

// NewAttr returns an Attr with safe defaults: no session, group or terminal
// changes and uid / gid left as is. The zero value of Attr requests uid and
// gid 0, so construct through NewAttr unless that is intended.
func NewAttr() Attr {
	return Attr{UID: -1, GID: -1}
}
