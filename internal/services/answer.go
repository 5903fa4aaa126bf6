package services

import (
	"context"
	"fmt"
)

// AnswerService produces a model reply for a prompt. Implementations return the raw
// text of the first candidate, or "" when the model returned no candidate text.
type AnswerService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GenerationOptions are sent with every request.
type GenerationOptions struct {
	Model             string
	SystemInstruction string
	MaxOutputTokens   int      // 0 leaves the model default
	Temperature       *float64 // nil leaves the model default
}

// RequestError covers every way an outbound request can fail: transport errors,
// non-2xx responses and undecodable bodies.
type RequestError struct {
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
