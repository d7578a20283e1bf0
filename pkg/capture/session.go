package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a Session.
type State int

const (
	// Idle is a session that has not redirected its stream yet.
	Idle State = iota
	// Active means the stream's descriptor points at the session's pipe.
	Active
	// Draining is set by End or Abort while the pipe is emptied and the
	// descriptor restored.
	Draining
	// Stopped means the descriptor is restored and the text is final.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// replaceFD points a descriptor at another descriptor's open file.
var replaceFD = dupOnto

// Session is one redirection of a Stream into an in-memory buffer. It owns the
// pipe and the saved descriptor duplicate until it is stopped.
type Session struct {
	stream *Stream
	opts   options
	sem    chan struct{}
	file   *os.File
	saved  int
	r      *os.File
	done   chan error

	// ending is set once End has started; only then does the drain honour
	// the sentinel. Before that a sentinel byte is ordinary data.
	ending atomic.Bool

	mu    sync.Mutex
	state State
	buf   bytes.Buffer

	once sync.Once
	text string
	err  error
}

// Begin redirects stream into a new Session. It waits for any session already
// active on the same descriptor to stop, or for ctx to be done.
func Begin(ctx context.Context, stream *Stream, opts ...Option) (*Session, error) {
	if stream == nil {
		return nil, fmt.Errorf("capture: begin: %w: nil stream", ErrUnsupportedStream)
	}

	sem := stream.owner()
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("capture: begin %s: %w", stream, ctx.Err())
	}

	s := &Session{stream: stream, opts: newOptions(opts), sem: sem, saved: -1}
	if err := s.start(); err != nil {
		<-sem
		return nil, err
	}

	return s, nil
}

func (s *Session) start() error {
	f, err := s.stream.live()
	if err != nil {
		return fmt.Errorf("capture: begin %s: %w", s.stream, err)
	}
	s.file = f

	s.opts.log.Debug("capture starting", "stream", s.stream.name, "fd", s.stream.fd, "mode", s.opts.mode.String())

	saved, err := dupFD(s.stream.fd)
	if err != nil {
		return fmt.Errorf("capture: begin %s: dup: %w: %w", s.stream, ErrResourceExhausted, err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		_ = closeFD(saved)
		return fmt.Errorf("capture: begin %s: pipe: %w: %w", s.stream, ErrResourceExhausted, err)
	}

	//nolint:gosec // descriptors are small non-negative ints
	if err := replaceFD(int(w.Fd()), s.stream.fd); err != nil {
		_ = r.Close()
		_ = w.Close()
		_ = closeFD(saved)
		return fmt.Errorf("capture: begin %s: redirect: %w: %w", s.stream, ErrResourceExhausted, err)
	}

	// The stream's descriptor is now the only reference to the write end.
	_ = w.Close()

	s.saved = saved
	s.r = r
	s.setState(Active)

	if s.opts.mode == Background {
		s.startConsumer()
		if s.opts.settle > 0 {
			time.Sleep(s.opts.settle)
		}
	}

	return nil
}

// startConsumer runs the drain on its own goroutine. The pipe is the bounded
// buffer between the writers and this consumer.
func (s *Session) startConsumer() {
	started := make(chan struct{})
	s.done = make(chan error, 1)

	go func() {
		close(started)
		s.done <- s.drain(!s.opts.closeSignal)
	}()

	<-started
}

// End signals the end of the captured window, drains the pipe, restores the
// original descriptor and returns everything written in between. Partial
// output is returned alongside any error. Calling End again returns the first
// result.
func (s *Session) End() (string, error) {
	s.once.Do(func() { s.text, s.err = s.stop(false) })
	return s.text, s.err
}

// Abort restores the original descriptor without waiting for a terminator and
// returns whatever reached the pipe. It is used when the wrapped call is still
// running and has to be abandoned.
func (s *Session) Abort() (string, error) {
	s.once.Do(func() { s.text, s.err = s.stop(true) })
	return s.text, s.err
}

func (s *Session) stop(abort bool) (string, error) {
	defer func() { <-s.sem }()

	s.setState(Draining)

	var errs []error
	if !abort && s.opts.flush != nil {
		if err := s.opts.flush(); err != nil {
			errs = append(errs, fmt.Errorf("capture: end %s: flush: %w", s.stream, err))
		}
	}

	switch {
	case abort:
		errs = append(errs, s.restore(), s.interrupt())
	case s.opts.closeSignal:
		errs = append(errs, s.restore(), s.collect())
	default:
		errs = append(errs, s.finish())
	}
	_ = s.r.Close()

	s.mu.Lock()
	s.state = Stopped
	text := s.buf.String()
	s.mu.Unlock()

	err := errors.Join(errs...)
	if err != nil {
		s.opts.log.Warn("capture stopped with error", "stream", s.stream.name, "bytes", len(text), "abort", abort, "error", err)
	} else {
		s.opts.log.Debug("capture stopped", "stream", s.stream.name, "bytes", len(text), "abort", abort)
	}

	return text, err
}

// finish ends a sentinel-terminated session. The drain is running before the
// sentinel is written, so a pipe filled by the captured window cannot hold
// the write up past the drain bound. The descriptor is restored on return.
func (s *Session) finish() error {
	s.ending.Store(true)
	if s.done == nil {
		s.startConsumer()
	}

	wrote := make(chan error, 1)
	go func() {
		_, err := s.file.Write([]byte{s.opts.sentinel})
		wrote <- err
	}()

	var timeout <-chan time.Time
	if d := s.opts.drainTimeout; d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}

	var (
		drainErr error
		writeErr error
		written  bool
	)

wait:
	for {
		select {
		case drainErr = <-s.done:
			break wait

		case writeErr = <-wrote:
			written = true
			wrote = nil
			if writeErr != nil {
				_ = s.r.SetReadDeadline(time.Now())
				<-s.done
				drainErr = nil
				break wait
			}

		case <-timeout:
			_ = s.r.SetReadDeadline(time.Now())
			<-s.done
			drainErr = fmt.Errorf("capture: end %s: %w: sentinel not observed within %s", s.stream, ErrCapture, s.opts.drainTimeout)
			break wait
		}
	}

	errs := []error{drainErr, s.restore()}

	if !written {
		// The sentinel may still be queued on a full pipe. Keep reading
		// until it lands so closing the read end never breaks the write.
		writeErr = s.release(wrote, drainErr != nil)
	}
	if writeErr != nil {
		errs = append(errs, fmt.Errorf("capture: end %s: write sentinel: %w: %w", s.stream, ErrCapture, writeErr))
	}

	return errors.Join(errs...)
}

// release reads the pipe until the pending sentinel write reports back. When
// keep is set the bytes read before the sentinel are added to the buffer.
func (s *Session) release(wrote <-chan error, keep bool) error {
	chunk := make([]byte, 32*1024)

	for {
		select {
		case err := <-wrote:
			return err
		default:
		}

		_ = s.r.SetReadDeadline(time.Now().Add(releasePoll))
		n, err := s.r.Read(chunk)
		if n > 0 && keep {
			data := chunk[:n]
			if i := bytes.IndexByte(data, s.opts.sentinel); i >= 0 {
				data = data[:i]
				keep = false
			}
			s.append(data)
		}

		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			// No writer is left on the pipe, so the write has returned.
			return <-wrote
		}
	}
}

// collect waits for end-of-file after the descriptor has been restored,
// bounded by the drain timeout.
func (s *Session) collect() error {
	d := s.opts.drainTimeout

	if s.opts.mode == Synchronous {
		if d > 0 {
			_ = s.r.SetReadDeadline(time.Now().Add(d))
		}
		return s.drain(false)
	}

	if d <= 0 {
		return <-s.done
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case err := <-s.done:
		return err
	case <-t.C:
		_ = s.r.SetReadDeadline(time.Now())
		<-s.done
		return fmt.Errorf("capture: end %s: %w: end of stream not observed within %s", s.stream, ErrCapture, d)
	}
}

// interrupt drains what is left in the pipe after an abort. The descriptor is
// already restored, so the pipe reaches end-of-file unless a child process
// still holds the write end.
func (s *Session) interrupt() error {
	_ = s.r.SetReadDeadline(time.Now().Add(abortGrace))

	var err error
	if s.opts.mode == Background {
		err = <-s.done
	} else {
		err = s.drain(false)
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, os.ErrDeadlineExceeded) {
		return nil
	}

	return err
}

// drain reads the pipe into the buffer until the sentinel (when untilSentinel
// is set and End has started) or end-of-file. The sentinel itself is
// discarded; sentinel bytes read while the session is active are kept.
func (s *Session) drain(untilSentinel bool) error {
	chunk := make([]byte, 32*1024)

	for {
		n, err := s.r.Read(chunk)
		if n > 0 {
			data := chunk[:n]
			if untilSentinel && s.ending.Load() {
				if i := bytes.IndexByte(data, s.opts.sentinel); i >= 0 {
					s.append(data[:i])
					return nil
				}
			}
			s.append(data)
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			if untilSentinel {
				return fmt.Errorf("capture: drain %s: %w: pipe closed before sentinel: %w", s.stream, ErrCapture, io.ErrUnexpectedEOF)
			}
			return nil
		default:
			return fmt.Errorf("capture: drain %s: %w: %w", s.stream, ErrCapture, err)
		}
	}
}

func (s *Session) append(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Write(p)
}

func (s *Session) restore() error {
	err := replaceFD(s.saved, s.stream.fd)
	_ = closeFD(s.saved)
	if err != nil {
		return fmt.Errorf("capture: restore %s: %w: %w", s.stream, ErrRestore, err)
	}

	return nil
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = st
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Stream returns the captured stream.
func (s *Session) Stream() *Stream { return s.stream }

// Mode returns the drain mode.
func (s *Session) Mode() Mode { return s.opts.mode }

// Bytes returns a copy of the bytes drained so far. In Synchronous mode
// nothing is drained before End.
func (s *Session) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return bytes.Clone(s.buf.Bytes())
}
