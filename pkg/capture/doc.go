// Package capture redirects a process-wide output stream (standard output or
// standard error) into an in-memory buffer for the duration of one call.
//
// Redirection happens at the file-descriptor level, so text written by code
// that bypasses Go's os package (a linked C routine, a child process that
// inherited the descriptor) is captured as well. A Session owns a pipe and a
// saved duplicate of the original descriptor; Begin swaps the pipe's write end
// onto the descriptor and End swaps the original back.
//
// A Session is terminated either by a sentinel byte written through the live
// stream object while the pipe is still installed (the default), or, with
// WithCloseSignal, by restoring the descriptor first and draining the pipe to
// end-of-file. The second form is binary-safe.
//
// Only one Session per descriptor may be active at a time. Begin waits for the
// current owner to finish, so nesting a capture of the same stream inside
// another blocks until the context passed to Begin is done.
//
// Typical use wraps a single native call with both streams:
//
//	out, err := capture.Both(ctx, func() error {
//		_, err := r.Run(ctx, argv)
//		return err
//	})
package capture
