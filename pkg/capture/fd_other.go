//go:build !unix

package capture

import "errors"

func dupFD(int) (int, error) { return -1, errors.ErrUnsupported }

func checkFD(int) error { return errors.ErrUnsupported }

func closeFD(int) error { return errors.ErrUnsupported }

func dupOnto(int, int) error { return errors.ErrUnsupported }
