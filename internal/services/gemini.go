package services

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiService answers prompts through the official Gemini Go SDK.
type GeminiService struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *zap.Logger
}

// NewGeminiService creates an SDK client and applies opts to its model.
// clientOpts are passed to the client after the API key, so an endpoint or
// HTTP client given there takes effect.
func NewGeminiService(ctx context.Context, apiKey string, opts GenerationOptions, logger *zap.Logger, clientOpts ...option.ClientOption) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, clientOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(opts.Model)
	if opts.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(opts.SystemInstruction)},
		}
	}
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxOutputTokens))
	}
	if opts.Temperature != nil {
		model.SetTemperature(float32(*opts.Temperature))
	}

	return &GeminiService{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Close releases the client's connections.
func (s *GeminiService) Close() {
	s.client.Close()
}

// Complete sends one GenerateContent call and returns the first candidate's first text part.
func (s *GeminiService) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &RequestError{Message: "Gemini API error", Err: err}
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.logger.Warn("gemini stopped early",
				zap.Int("candidate", i),
				zap.String("finish_reason", cand.FinishReason.String()),
			)
		}
	}

	return firstCandidateText(resp), nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return ""
	}
	if t, ok := content.Parts[0].(genai.Text); ok {
		return string(t)
	}
	return ""
}
