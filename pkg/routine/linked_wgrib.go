//go:build cgo && wgrib

package routine

/*
#cgo LDFLAGS: -lwgrib
int wgrib_main(int argc, char **argv);
*/
import "C"

func init() {
	registerLinked(Primary, func(argv []string) int {
		return callMain(argv, func(argc C.int, argv **C.char) C.int {
			return C.wgrib_main(argc, argv)
		})
	}, flushStdio)
}
