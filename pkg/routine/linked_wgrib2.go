//go:build cgo && wgrib2

package routine

/*
#cgo LDFLAGS: -lwgrib2
int wgrib2_main(int argc, char **argv);
*/
import "C"

func init() {
	registerLinked(Secondary, func(argv []string) int {
		return callMain(argv, func(argc C.int, argv **C.char) C.int {
			return C.wgrib2_main(argc, argv)
		})
	}, flushStdio)
}
