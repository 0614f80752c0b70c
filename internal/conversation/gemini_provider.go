package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Generation parameters tuned for supportive, non-erratic text. Not part of
// the wire contract; shared by both hosted providers.
const (
	defaultMaxOutputTokens = 1000
	defaultTemperature     = 0.7
)

// GeminiProvider implements StreamProvider using Google's Gemini API.
type GeminiProvider struct {
	client          *genai.Client
	modelID         string
	maxOutputTokens int32
	temperature     float32
}

// NewGeminiProvider creates a Gemini streaming provider.
func NewGeminiProvider(ctx context.Context, apiKey, modelID string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client:          client,
		modelID:         modelID,
		maxOutputTokens: defaultMaxOutputTokens,
		temperature:     defaultTemperature,
	}, nil
}

// Name identifies this provider in logs and metrics.
func (p *GeminiProvider) Name() string { return "gemini" }

// StreamGenerate starts a streaming generation for the prompt.
func (p *GeminiProvider) StreamGenerate(ctx context.Context, prompt string) (TokenStream, error) {
	model := p.client.GenerativeModel(p.modelID)
	model.SetMaxOutputTokens(p.maxOutputTokens)
	model.SetTemperature(p.temperature)

	iter := model.GenerateContentStream(ctx, genai.Text(prompt))
	return &geminiStream{iter: iter}, nil
}

// Close releases resources held by the Gemini client.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

type geminiStream struct {
	iter *genai.GenerateContentResponseIterator
}

func (s *geminiStream) Recv() (string, error) {
	for {
		resp, err := s.iter.Next()
		if err == iterator.Done {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("conversation: gemini stream failed: %w", err)
		}
		if text := geminiText(resp); text != "" {
			return text, nil
		}
		// Skip candidate-less keepalive responses.
	}
}

func (s *geminiStream) Close() error { return nil }

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
