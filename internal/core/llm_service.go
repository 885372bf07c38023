package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiClient is the production Generator. Each Stream call owns its own
// response iterator, so concurrent calls do not share mutable state.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *GeminiClient) Stream(ctx context.Context, prompt string) (TokenStream, error) {
	model := c.client.GenerativeModel(c.model)
	iter := model.GenerateContentStream(ctx, genai.Text(prompt))
	return &geminiStream{iter: iter}, nil
}

type geminiStream struct {
	iter *genai.GenerateContentResponseIterator
}

func (s *geminiStream) Next() (string, error) {
	resp, err := s.iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", ErrStreamDone
	}
	if err != nil {
		return "", fmt.Errorf("gemini stream failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		// Empty chunks happen; skip to the next one.
		return "", nil
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	return text.String(), nil
}
