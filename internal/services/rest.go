package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"buiq-backend/internal/models"
)

// maxResponseSize caps how much of an upstream body is read.
const maxResponseSize = 4 * 1024 * 1024

// RESTService calls the generateContent endpoint directly. The API key travels in
// the x-goog-api-key header and never appears in a URL.
type RESTService struct {
	baseURL    string
	apiKey     string
	opts       GenerationOptions
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRESTService builds a REST client. A zero timeout leaves the HTTP client's
// defaults in charge.
func NewRESTService(baseURL, apiKey string, opts GenerationOptions, timeout time.Duration, logger *zap.Logger) *RESTService {
	return &RESTService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		opts:       opts,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (s *RESTService) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, url.PathEscape(s.opts.Model))
}

func (s *RESTService) buildRequest(prompt string) models.GenerateContentRequest {
	req := models.GenerateContentRequest{
		Contents: []models.Content{
			{Parts: []models.Part{{Text: prompt}}},
		},
	}

	if s.opts.SystemInstruction != "" {
		req.SystemInstruction = &models.Content{
			Parts: []models.Part{{Text: s.opts.SystemInstruction}},
		}
	}

	if s.opts.MaxOutputTokens > 0 || s.opts.Temperature != nil {
		gc := &models.GenerationConfig{Temperature: s.opts.Temperature}
		if s.opts.MaxOutputTokens > 0 {
			n := s.opts.MaxOutputTokens
			gc.MaxOutputTokens = &n
		}
		req.GenerationConfig = gc
	}

	return req
}

// Complete issues exactly one POST and extracts candidates[0].content.parts[0].text.
func (s *RESTService) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(s.buildRequest(prompt))
	if err != nil {
		return "", &RequestError{Message: "failed to encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return "", &RequestError{Message: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", s.apiKey)

	s.logger.Debug("sending generateContent request",
		zap.String("model", s.opts.Model),
		zap.Int("body_size", len(reqBody)),
	)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", &RequestError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &RequestError{StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RequestError{StatusCode: resp.StatusCode, Message: upstreamMessage(body)}
	}

	var parsed models.GenerateContentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &RequestError{StatusCode: resp.StatusCode, Message: "malformed response body", Err: err}
	}

	if len(parsed.Candidates) > 0 && parsed.Candidates[0].FinishReason != "" && parsed.Candidates[0].FinishReason != "STOP" {
		s.logger.Warn("gemini stopped early", zap.String("finish_reason", parsed.Candidates[0].FinishReason))
	}

	return parsed.FirstText(), nil
}

func upstreamMessage(body []byte) string {
	var apiErr models.GeminiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return "upstream error: " + apiErr.Error.Message
	}
	return "upstream error"
}
