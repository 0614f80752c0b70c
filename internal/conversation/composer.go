package conversation

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mamakokoro/kokoro/internal/observability/metrics"
	"github.com/mamakokoro/kokoro/internal/triage"
	"github.com/mamakokoro/kokoro/pkg/logging"
)

var composerTracer = otel.Tracer("kokoro/composer")

// safetySeparator visually divides mandatory safety content from generative
// content in the output stream.
const safetySeparator = "\n---\n\n"

// ContextSource supplies prior user context for prompt enrichment.
// Implementations are best-effort and return "" on any failure.
type ContextSource interface {
	PersonalizedContext(ctx context.Context, userID, message string) string
}

// ChunkWriter receives incremental output. A write error means the consumer
// is gone; the composer stops relaying and archives what it has.
type ChunkWriter interface {
	WriteChunk(chunk string) error
}

// TurnRequest is one inbound user turn.
type TurnRequest struct {
	UserID       string
	Message      string
	Phase        Phase
	PhaseContext PhaseContext
	// CrisisHint is the client's advisory classification; it is logged for
	// comparison but never trusted, the server always recomputes.
	CrisisHint string
}

// TurnResult summarizes one composed turn.
type TurnResult struct {
	RiskLevel triage.RiskLevel
	Response  string
	Provider  string
	Cancelled bool
}

// Composer orchestrates a single turn: risk assessment, mandatory safety
// content, memory enrichment, provider-chain generation, incremental relay,
// and detached archival. Every dependency beneath it has a safe fallback,
// so composing a turn cannot fail; the worst case is local templated output.
type Composer struct {
	classifier *triage.Classifier
	contexts   ContextSource
	chain      *ProviderChain
	archiver   *Archiver
	metrics    *metrics.ChatMetrics
	logger     *logging.Logger
}

// NewComposer wires a composer from its collaborators.
func NewComposer(classifier *triage.Classifier, contexts ContextSource, chain *ProviderChain, archiver *Archiver, m *metrics.ChatMetrics, logger *logging.Logger) *Composer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Composer{
		classifier: classifier,
		contexts:   contexts,
		chain:      chain,
		archiver:   archiver,
		metrics:    m,
		logger:     logger,
	}
}

// ComposeTurn runs one streamed turn. Safety content, when the assessed risk
// demands it, is fully written before the first generative chunk; this
// ordering is the invariant the whole pipeline protects. A consumer
// disconnect stops further writes and still archives the partial exchange
// exactly once.
func (c *Composer) ComposeTurn(ctx context.Context, req TurnRequest, w ChunkWriter) TurnResult {
	ctx, span := composerTracer.Start(ctx, "composer.turn")
	defer span.End()
	start := time.Now()

	level := c.classifier.Classify(ctx, req.Message)
	span.SetAttributes(attribute.String("kokoro.risk_level", level.String()))
	c.metrics.ObserveTurn(level.String(), "stream")
	if req.CrisisHint != "" && triage.ParseCode(req.CrisisHint) != level {
		c.logger.Info("client crisis hint disagrees with server assessment",
			"hint", req.CrisisHint,
			"assessed", level.Code(),
			"user_id", req.UserID,
		)
	}

	result := TurnResult{RiskLevel: level}

	// Safety content first, always complete before any generative output.
	if safety := triage.SafetyMessage(level); safety != "" {
		if err := w.WriteChunk(safety); err != nil {
			return c.finish(req, result, true, start)
		}
		result.Response += safety
		if err := w.WriteChunk(safetySeparator); err != nil {
			return c.finish(req, result, true, start)
		}
		result.Response += safetySeparator
	}

	// Enrichment is best-effort and bounded by the gateway's own timeout.
	memoryContext := ""
	if c.contexts != nil {
		memoryContext = c.contexts.PersonalizedContext(ctx, req.UserID, req.Message)
	}

	prompt := BuildPrompt(req.Phase, req.PhaseContext, level, memoryContext, req.Message)
	stream, provider := c.chain.Stream(ctx, prompt, req.Message)
	defer func() { _ = stream.Close() }()
	result.Provider = provider
	span.SetAttributes(attribute.String("kokoro.provider", provider))

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Committed streams absorb their own failures; anything else
			// still ends the relay without surfacing an error.
			c.logger.Warn("stream ended unexpectedly", "provider", provider, "error", err)
			break
		}
		if err := w.WriteChunk(chunk); err != nil {
			c.logger.Info("consumer disconnected mid-relay", "user_id", req.UserID)
			return c.finish(req, result, true, start)
		}
		result.Response += chunk
	}

	return c.finish(req, result, false, start)
}

// ComposeMessage runs one non-streamed turn using the deterministic local
// composition: safety content joined to the topic-keyed supportive response.
func (c *Composer) ComposeMessage(ctx context.Context, req TurnRequest) TurnResult {
	ctx, span := composerTracer.Start(ctx, "composer.message")
	defer span.End()

	level := c.classifier.Classify(ctx, req.Message)
	c.metrics.ObserveTurn(level.String(), "message")

	response := LocalResponse(req.Message)
	if safety := triage.SafetyMessage(level); safety != "" {
		response = safety + "\n\n---\n\n" + response
	}

	result := TurnResult{
		RiskLevel: level,
		Response:  response,
		Provider:  LocalResponder{}.Name(),
	}
	c.archive(req, result)
	return result
}

// finish records turn metrics and dispatches archival exactly once. Every
// exit path of ComposeTurn, cancelled or not, funnels through here.
func (c *Composer) finish(req TurnRequest, result TurnResult, cancelled bool, start time.Time) TurnResult {
	result.Cancelled = cancelled
	c.metrics.ObserveStreamDuration(result.Provider, time.Since(start).Seconds())
	c.archive(req, result)
	return result
}

func (c *Composer) archive(req TurnRequest, result TurnResult) {
	if c.archiver == nil {
		return
	}
	c.archiver.Enqueue(ArchiveJob{
		UserID:    req.UserID,
		Message:   req.Message,
		Response:  result.Response,
		RiskLevel: result.RiskLevel,
	})
}
