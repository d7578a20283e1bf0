//go:build unix

package capture

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// dupFD returns a close-on-exec duplicate of fd. ForkLock keeps a concurrent
// os/exec fork from inheriting the duplicate before the flag is set.
func dupFD(fd int) (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()

	nfd, err := unix.Dup(fd)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(nfd)

	return nfd, nil
}

func checkFD(fd int) error {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0) //nolint:gosec // fd is non-negative
	return err
}

func closeFD(fd int) error {
	return unix.Close(fd)
}
