//go:build linux

package capture

import "golang.org/x/sys/unix"

// dupOnto makes newfd refer to oldfd's open file. The copy is inheritable.
func dupOnto(oldfd, newfd int) error {
	for {
		err := unix.Dup3(oldfd, newfd, 0)
		if err != unix.EINTR {
			return err
		}
	}
}
