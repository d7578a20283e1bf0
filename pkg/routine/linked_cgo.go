//go:build cgo && (wgrib || wgrib2)

package routine

/*
#include <stdio.h>
#include <stdlib.h>
*/
import "C"

import "unsafe"

// callMain converts argv to a NULL-terminated C array for the duration of one
// call to a C main function.
func callMain(argv []string, main func(argc C.int, argv **C.char) C.int) int {
	cargv := make([]*C.char, len(argv)+1)
	for i, a := range argv {
		cargv[i] = C.CString(a)
	}
	defer func() {
		for _, p := range cargv[:len(argv)] {
			C.free(unsafe.Pointer(p))
		}
	}()

	return int(main(C.int(len(argv)), &cargv[0]))
}

// flushStdio flushes every libc output stream so buffered decoder output
// reaches the descriptors before a capture ends.
func flushStdio() error {
	C.fflush(nil)
	return nil
}
