package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"buiq-backend/internal/models"
)

// stubAnswers is a scripted AnswerService. When block is set, Complete signals
// started and waits for block to close.
type stubAnswers struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
	ctxErrs []error

	started chan struct{}
	block   chan struct{}
}

func (s *stubAnswers) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	s.mu.Unlock()

	if s.block != nil {
		if s.started != nil {
			close(s.started)
		}
		<-s.block
	}
	return s.text, s.err
}

func (s *stubAnswers) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type recordedEvent struct {
	sessionID uuid.UUID
	msg       models.WSMessage
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
	closed []uuid.UUID
}

func (r *recordingEvents) Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{sessionID: sessionID, msg: msg})
}

func (r *recordingEvents) CloseSession(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, sessionID)
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.msg.Type)
	}
	return out
}
