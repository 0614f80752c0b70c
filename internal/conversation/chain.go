package conversation

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mamakokoro/kokoro/internal/observability/metrics"
	"github.com/mamakokoro/kokoro/pkg/logging"
)

var chainTracer = otel.Tracer("kokoro/provider-chain")

// ProviderChain tries an ordered list of generative providers and falls back
// to the local templated responder when every provider fails. Any provider
// error is treated as transient.
//
// The chain buffers the first chunk of each attempt before committing to it:
// a provider that fails at call setup, or errors before producing its first
// chunk, is abandoned with nothing relayed, so fallback never duplicates
// content. Once committed, a mid-stream failure ends the stream early with
// whatever was produced; it is logged, not retried.
type ProviderChain struct {
	providers []StreamProvider
	local     LocalResponder
	metrics   *metrics.ChatMetrics
	logger    *logging.Logger
}

// NewProviderChain creates a chain over the given providers, in priority
// order. The local responder is always appended implicitly.
func NewProviderChain(providers []StreamProvider, m *metrics.ChatMetrics, logger *logging.Logger) *ProviderChain {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProviderChain{
		providers: providers,
		metrics:   m,
		logger:    logger,
	}
}

// Stream produces a token stream for the assembled prompt. The original user
// message drives topic selection if the local fallback is reached. The
// returned provider name identifies which backend was committed to.
// Stream itself never fails.
func (c *ProviderChain) Stream(ctx context.Context, prompt, message string) (TokenStream, string) {
	ctx, span := chainTracer.Start(ctx, "chain.stream")
	defer span.End()

	for _, p := range c.providers {
		stream, err := p.StreamGenerate(ctx, prompt)
		if err != nil {
			c.metrics.ObserveProviderAttempt(p.Name(), "setup_failure")
			c.logger.Warn("provider setup failed, falling through", "provider", p.Name(), "error", err)
			continue
		}

		first, err := stream.Recv()
		if err != nil {
			// io.EOF with no content counts as a failure too: an empty
			// generative response is not worth committing to.
			_ = stream.Close()
			c.metrics.ObserveProviderAttempt(p.Name(), "first_chunk_failure")
			c.logger.Warn("provider failed before first chunk, falling through", "provider", p.Name(), "error", err)
			continue
		}

		c.metrics.ObserveProviderAttempt(p.Name(), "success")
		span.SetAttributes(attribute.String("chain.provider", p.Name()))
		return &committedStream{
			inner:  &prefixedStream{head: first, rest: stream},
			name:   p.Name(),
			logger: c.logger,
		}, p.Name()
	}

	c.metrics.ObserveProviderAttempt(c.local.Name(), "success")
	span.SetAttributes(attribute.String("chain.provider", c.local.Name()))
	stream, _ := c.local.StreamGenerate(ctx, message)
	return stream, c.local.Name()
}

// committedStream wraps a committed provider stream. A failure after commit
// is absorbed: the stream ends early rather than surfacing an error, since
// partially relayed output cannot be retracted and must not be duplicated
// by a retry.
type committedStream struct {
	inner     TokenStream
	name      string
	logger    *logging.Logger
	truncated bool
}

func (s *committedStream) Recv() (string, error) {
	if s.truncated {
		return "", io.EOF
	}
	chunk, err := s.inner.Recv()
	if err == io.EOF {
		return "", io.EOF
	}
	if err != nil {
		s.truncated = true
		s.logger.Warn("provider stream failed mid-relay, truncating", "provider", s.name, "error", err)
		return "", io.EOF
	}
	return chunk, nil
}

func (s *committedStream) Close() error {
	return s.inner.Close()
}
