package extract

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/mailspend/internal/domain"
)

// ModelClient is the slice of the GenAI surface the extractor needs. It
// exists so tests can substitute canned responses for the real model.
type ModelClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Extractor sends one message at a time to the extraction model and parses
// the response into a tagged Outcome. It never returns an error from
// Extract: every failure mode is data attributed to the message.
type Extractor struct {
	client ModelClient
	log    zerolog.Logger
}

// NewExtractor creates an Extractor over the given model client.
func NewExtractor(client ModelClient, log zerolog.Logger) *Extractor {
	return &Extractor{client: client, log: log}
}

// Extract classifies one candidate message and returns its outcome.
func (e *Extractor) Extract(ctx context.Context, msg domain.CandidateMessage) Outcome {
	prompt := buildPrompt(msg)

	raw, err := e.client.GenerateText(ctx, prompt)
	if err != nil {
		e.log.Warn().Err(err).Str("message_id", msg.ID).Msg("Model call failed")
		return Failed(msg.ID, fmt.Sprintf("model call: %v", err))
	}

	outcome := parseResponse(msg.ID, raw)
	if outcome.Kind == KindFailed {
		e.log.Warn().
			Str("message_id", msg.ID).
			Str("reason", outcome.Reason).
			Msg("Unusable model response")
	}
	return outcome
}

// GeminiClient adapts google.golang.org/genai to the ModelClient interface.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a GenAI client for the given model. Credentials
// come from the environment, same as the rest of the Google stack.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// GenerateText sends a single-turn text prompt and returns the raw response
// text.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenerateText: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return "", fmt.Errorf("GenerateText: empty response from model")
	}
	return rawText, nil
}
