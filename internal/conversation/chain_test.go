package conversation

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name     string
	setupErr error
	stream   TokenStream
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) StreamGenerate(_ context.Context, _ string) (TokenStream, error) {
	if p.setupErr != nil {
		return nil, p.setupErr
	}
	return p.stream, nil
}

// errorStream yields the given chunks, then a non-EOF error.
type errorStream struct {
	chunks []string
	pos    int
	err    error
	closed bool
}

func (s *errorStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", s.err
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *errorStream) Close() error {
	s.closed = true
	return nil
}

func drain(t *testing.T, stream TokenStream) string {
	t.Helper()
	var out string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out += chunk
	}
}

func TestChainUsesFirstHealthyProvider(t *testing.T) {
	chain := NewProviderChain([]StreamProvider{
		&fakeProvider{name: "primary", stream: newSliceStream("Hello, ", "mama.")},
		&fakeProvider{name: "secondary", stream: newSliceStream("unused")},
	}, nil, nil)

	stream, provider := chain.Stream(context.Background(), "prompt", "message")
	defer stream.Close()

	assert.Equal(t, "primary", provider)
	assert.Equal(t, "Hello, mama.", drain(t, stream))
}

func TestChainSkipsSetupFailure(t *testing.T) {
	chain := NewProviderChain([]StreamProvider{
		&fakeProvider{name: "primary", setupErr: errors.New("quota exceeded")},
		&fakeProvider{name: "secondary", stream: newSliceStream("from secondary")},
	}, nil, nil)

	stream, provider := chain.Stream(context.Background(), "prompt", "message")
	defer stream.Close()

	assert.Equal(t, "secondary", provider)
	assert.Equal(t, "from secondary", drain(t, stream))
}

func TestChainAbandonsProviderBeforeFirstChunk(t *testing.T) {
	failing := &errorStream{err: errors.New("connection reset")}
	chain := NewProviderChain([]StreamProvider{
		&fakeProvider{name: "primary", stream: failing},
		&fakeProvider{name: "secondary", stream: newSliceStream("clean handoff")},
	}, nil, nil)

	stream, provider := chain.Stream(context.Background(), "prompt", "message")
	defer stream.Close()

	assert.Equal(t, "secondary", provider)
	assert.Equal(t, "clean handoff", drain(t, stream))
	assert.True(t, failing.closed, "abandoned stream should be closed")
}

func TestChainEmptyProviderResponseFallsThrough(t *testing.T) {
	chain := NewProviderChain([]StreamProvider{
		&fakeProvider{name: "primary", stream: newSliceStream()},
		&fakeProvider{name: "secondary", stream: newSliceStream("real content")},
	}, nil, nil)

	stream, provider := chain.Stream(context.Background(), "prompt", "message")
	defer stream.Close()

	assert.Equal(t, "secondary", provider)
	assert.Equal(t, "real content", drain(t, stream))
}

func TestChainCommittedStreamTruncatesOnMidStreamError(t *testing.T) {
	chain := NewProviderChain([]StreamProvider{
		&fakeProvider{name: "primary", stream: &errorStream{
			chunks: []string{"partial ", "output"},
			err:    errors.New("upstream dropped"),
		}},
		&fakeProvider{name: "secondary", stream: newSliceStream("never reached")},
	}, nil, nil)

	stream, provider := chain.Stream(context.Background(), "prompt", "message")
	defer stream.Close()

	// Committed to primary: the mid-stream failure truncates, it does not
	// fall through to the next provider.
	assert.Equal(t, "primary", provider)
	assert.Equal(t, "partial output", drain(t, stream))

	// Recv after truncation keeps returning io.EOF.
	_, err := stream.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestChainAllProvidersFailUsesLocalResponder(t *testing.T) {
	chain := NewProviderChain([]StreamProvider{
		&fakeProvider{name: "primary", setupErr: errors.New("down")},
		&fakeProvider{name: "secondary", setupErr: errors.New("also down")},
	}, nil, nil)

	stream, provider := chain.Stream(context.Background(), "prompt", "I feel so overwhelmed today")
	defer stream.Close()

	assert.Equal(t, "local", provider)
	out := drain(t, stream)
	assert.NotEmpty(t, out)
	assert.Equal(t, LocalResponse("I feel so overwhelmed today"), out)
}

func TestChainNoProvidersConfigured(t *testing.T) {
	chain := NewProviderChain(nil, nil, nil)

	stream, provider := chain.Stream(context.Background(), "prompt", "anything")
	defer stream.Close()

	assert.Equal(t, "local", provider)
	assert.NotEmpty(t, drain(t, stream))
}
