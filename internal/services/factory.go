package services

import (
	"context"

	"go.uber.org/zap"

	"buiq-backend/internal/config"
)

// GenerationOptionsFromConfig maps the Gemini settings onto request options.
func GenerationOptionsFromConfig(cfg *config.Config) GenerationOptions {
	temperature := cfg.GeminiTemperature
	return GenerationOptions{
		Model:             cfg.GeminiModel,
		SystemInstruction: cfg.GeminiSystemInstruction,
		MaxOutputTokens:   cfg.GeminiMaxOutputTokens,
		Temperature:       &temperature,
	}
}

// NewAnswerService builds the transport selected by GEMINI_TRANSPORT. The returned
// close func releases the SDK client and is a no-op for REST.
func NewAnswerService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (AnswerService, func(), error) {
	opts := GenerationOptionsFromConfig(cfg)

	if cfg.GeminiTransport == config.TransportSDK {
		svc, err := NewGeminiService(ctx, cfg.GeminiAPIKey, opts, logger)
		if err != nil {
			return nil, nil, err
		}
		return svc, svc.Close, nil
	}

	return NewRESTService(cfg.GeminiBaseURL, cfg.GeminiAPIKey, opts, cfg.GeminiTimeout, logger), func() {}, nil
}

// ReplyProcessorFromConfig selects plain or markdown post-processing.
func ReplyProcessorFromConfig(cfg *config.Config) ReplyProcessor {
	return ReplyProcessor{
		Markdown: cfg.IsMarkdown(),
		MaxChars: cfg.MaxReplyChars,
	}
}
