package conversation

import (
	"context"
	"io"
)

// TokenStream is a lazy, finite, non-restartable sequence of text chunks.
// Recv returns io.EOF when the sequence is exhausted; a fresh provider call
// is needed to retry. Close releases any underlying transport resources and
// is safe to call more than once.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// StreamProvider produces a TokenStream for a prompt. Implementations do no
// retrying themselves; fallback is the chain's job.
type StreamProvider interface {
	Name() string
	StreamGenerate(ctx context.Context, prompt string) (TokenStream, error)
}

// sliceStream replays a fixed set of chunks. Used by the local responder and
// by the chain to re-emit a buffered first chunk ahead of a live stream.
type sliceStream struct {
	chunks []string
	pos    int
}

func newSliceStream(chunks ...string) *sliceStream {
	return &sliceStream{chunks: chunks}
}

func (s *sliceStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *sliceStream) Close() error { return nil }

// prefixedStream emits a buffered head chunk, then drains the committed
// underlying stream.
type prefixedStream struct {
	head    string
	sent    bool
	rest    TokenStream
}

func (s *prefixedStream) Recv() (string, error) {
	if !s.sent {
		s.sent = true
		return s.head, nil
	}
	return s.rest.Recv()
}

func (s *prefixedStream) Close() error {
	return s.rest.Close()
}
