package capture

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Stream identifies an OS-level output stream: a descriptor number plus the
// stream object that normally writes to it.
type Stream struct {
	name string
	fd   int
	file func() *os.File
}

var (
	// Stdout is the process's standard output (descriptor 1, os.Stdout).
	Stdout = &Stream{name: "stdout", fd: 1, file: func() *os.File { return os.Stdout }}

	// Stderr is the process's standard error (descriptor 2, os.Stderr).
	Stderr = &Stream{name: "stderr", fd: 2, file: func() *os.File { return os.Stderr }}
)

// NewStream returns a Stream for an arbitrary open file. Streams created for
// the same descriptor share a single owner, as do Stdout and Stderr.
func NewStream(name string, f *os.File) *Stream {
	fd := -1
	if f != nil {
		fd = int(f.Fd()) //nolint:gosec // descriptors are small non-negative ints
	}

	return &Stream{name: name, fd: fd, file: func() *os.File { return f }}
}

// Name returns the stream's name.
func (s *Stream) Name() string { return s.name }

// FD returns the descriptor number the stream redirects.
func (s *Stream) FD() int { return s.fd }

func (s *Stream) String() string { return fmt.Sprintf("%s(fd %d)", s.name, s.fd) }

// live returns the stream object after checking that it is still backed by
// the stream's descriptor.
func (s *Stream) live() (*os.File, error) {
	if s.fd < 0 {
		return nil, fmt.Errorf("%w: %s has no descriptor", ErrUnsupportedStream, s.name)
	}

	f := s.file()
	if f == nil {
		return nil, fmt.Errorf("%w: %s has no stream object", ErrUnsupportedStream, s.name)
	}

	//nolint:gosec // descriptors are small non-negative ints
	if got := int(f.Fd()); got != s.fd {
		return nil, fmt.Errorf("%w: %s is backed by fd %d, not fd %d", ErrUnsupportedStream, s.name, got, s.fd)
	}

	if err := checkFD(s.fd); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedStream, s.name, err)
	}

	return f, nil
}

// owners holds one single-slot semaphore per descriptor number.
var (
	ownersMu sync.Mutex
	owners   = map[int]chan struct{}{}
)

func (s *Stream) owner() chan struct{} {
	ownersMu.Lock()
	defer ownersMu.Unlock()

	sem, ok := owners[s.fd]
	if !ok {
		sem = make(chan struct{}, 1)
		owners[s.fd] = sem
	}

	return sem
}

// Detach returns a new file on a duplicate of the stream's descriptor. Writes
// to it keep reaching the stream's current destination while later sessions
// redirect the stream. It waits for an active session on the stream to stop.
func (s *Stream) Detach(ctx context.Context) (*os.File, error) {
	sem := s.owner()
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("capture: detach %s: %w", s, ctx.Err())
	}
	defer func() { <-sem }()

	if _, err := s.live(); err != nil {
		return nil, fmt.Errorf("capture: detach %s: %w", s, err)
	}

	fd, err := dupFD(s.fd)
	if err != nil {
		return nil, fmt.Errorf("capture: detach %s: %w: %w", s, ErrResourceExhausted, err)
	}

	return os.NewFile(uintptr(fd), s.name+"-detached"), nil //nolint:gosec // fd is non-negative
}
