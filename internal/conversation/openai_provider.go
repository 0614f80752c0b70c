package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements StreamProvider using OpenAI chat completions.
type OpenAIProvider struct {
	client          *openai.Client
	modelID         string
	maxOutputTokens int
	temperature     float32
}

// NewOpenAIProvider creates an OpenAI streaming provider.
func NewOpenAIProvider(apiKey, modelID string) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: openai api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		client:          openai.NewClient(apiKey),
		modelID:         modelID,
		maxOutputTokens: defaultMaxOutputTokens,
		temperature:     defaultTemperature,
	}, nil
}

// Name identifies this provider in logs and metrics.
func (p *OpenAIProvider) Name() string { return "openai" }

// StreamGenerate starts a streaming chat completion for the prompt.
func (p *OpenAIProvider) StreamGenerate(ctx context.Context, prompt string) (TokenStream, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       p.modelID,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		MaxTokens:   p.maxOutputTokens,
		Temperature: p.temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: openai stream setup failed: %w", err)
	}
	return &openaiStream{stream: stream}, nil
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("conversation: openai stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}
