package capture

import (
	"context"
	"errors"
)

// Do captures stream while fn runs and returns the captured text. End runs
// exactly once, also when fn panics; the panic is re-raised after the stream
// has been restored. An error from fn is returned together with the text.
func Do(ctx context.Context, stream *Stream, fn func() error, opts ...Option) (text string, err error) {
	s, err := Begin(ctx, stream, opts...)
	if err != nil {
		return "", err
	}

	defer func() {
		var endErr error
		text, endErr = s.End()
		err = errors.Join(err, endErr)
	}()

	return "", fn()
}

// Output is the text captured from both standard streams.
type Output struct {
	Stdout string
	Stderr string
}

// Pair is a stdout session and a stderr session opened together.
type Pair struct {
	Out *Session
	Err *Session
}

// BeginPair starts capturing standard output, then standard error. If the
// second capture cannot start the first one is ended before returning.
func BeginPair(ctx context.Context, opts ...Option) (*Pair, error) {
	out, err := Begin(ctx, Stdout, opts...)
	if err != nil {
		return nil, err
	}

	errSess, err := Begin(ctx, Stderr, opts...)
	if err != nil {
		_, _ = out.End()
		return nil, err
	}

	return &Pair{Out: out, Err: errSess}, nil
}

// End ends standard error first, then standard output.
func (p *Pair) End() (Output, error) {
	stderr, errErr := p.Err.End()
	stdout, outErr := p.Out.End()

	return Output{Stdout: stdout, Stderr: stderr}, errors.Join(outErr, errErr)
}

// Abort aborts both sessions in the same order as End.
func (p *Pair) Abort() (Output, error) {
	stderr, errErr := p.Err.Abort()
	stdout, outErr := p.Out.Abort()

	return Output{Stdout: stdout, Stderr: stderr}, errors.Join(outErr, errErr)
}

// Both captures standard output and standard error while fn runs. It has the
// same guarantees as Do.
func Both(ctx context.Context, fn func() error, opts ...Option) (out Output, err error) {
	p, err := BeginPair(ctx, opts...)
	if err != nil {
		return Output{}, err
	}

	defer func() {
		var endErr error
		out, endErr = p.End()
		err = errors.Join(err, endErr)
	}()

	return Output{}, fn()
}
