package routine

import "strings"

// MaxArgs caps the number of arguments SplitCommandLine returns.
const MaxArgs = 1000

// SplitCommandLine breaks a decoder command line into argv. Arguments are
// separated by spaces; a double-quoted section keeps its spaces and loses its
// quotes. A quote also ends the argument before it, so `a"b c"` yields "a" and
// "b c". Arguments past MaxArgs are dropped.
func SplitCommandLine(line string) []string {
	var (
		args   []string
		cur    strings.Builder
		inArg  bool
		quoted bool
	)

	flush := func() {
		if inArg {
			args = append(args, cur.String())
			cur.Reset()
			inArg = false
		}
	}

	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			flush()
		case r == ' ' && !quoted:
			flush()
		default:
			cur.WriteRune(r)
			inArg = true
		}

		if len(args) == MaxArgs {
			return args
		}
	}
	flush()

	if len(args) > MaxArgs {
		args = args[:MaxArgs]
	}

	return args
}
