package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"buiq-backend/internal/conversation"
	"buiq-backend/internal/models"
)

var (
	ErrEmptyInput = errors.New("message text is required")
	ErrBusy       = errors.New("a reply is already being generated")
)

// EventPublisher fans conversation events out to connected clients.
type EventPublisher interface {
	Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage)
	CloseSession(sessionID uuid.UUID)
}

// Presenter decorates a message before it leaves the process (markdown HTML, for example).
type Presenter func(models.Message) models.Message

// Exchange is one completed round trip.
type Exchange struct {
	User models.Message
	Bot  models.Message
}

// Generator sends user input to an AnswerService and records both sides of the
// exchange in a conversation store. It allows one request at a time.
type Generator struct {
	sessionID uuid.UUID
	store     *conversation.Store
	answers   AnswerService
	replies   ReplyProcessor
	events    EventPublisher
	present   Presenter
	logger    *zap.Logger
	busy      atomic.Bool
}

// NewGenerator wires a generator to its store. events and present may be nil.
func NewGenerator(
	sessionID uuid.UUID,
	store *conversation.Store,
	answers AnswerService,
	replies ReplyProcessor,
	events EventPublisher,
	present Presenter,
	logger *zap.Logger,
) *Generator {
	if present == nil {
		present = func(m models.Message) models.Message { return m }
	}
	return &Generator{
		sessionID: sessionID,
		store:     store,
		answers:   answers,
		replies:   replies,
		events:    events,
		present:   present,
		logger:    logger,
	}
}

// Busy reports whether a request is in flight.
func (g *Generator) Busy() bool {
	return g.busy.Load()
}

// Store returns the conversation the generator appends to.
func (g *Generator) Store() *conversation.Store {
	return g.store
}

// Generate appends the user message, asks for a reply, and appends the bot message.
// Request failures are replaced by FallbackErrorText and never returned; the only
// errors are ErrEmptyInput and ErrBusy, in which case nothing is appended.
// The outbound call ignores cancellation of ctx: once issued it runs to completion.
func (g *Generator) Generate(ctx context.Context, userText string) (Exchange, error) {
	prompt := strings.TrimSpace(userText)
	if prompt == "" {
		return Exchange{}, ErrEmptyInput
	}

	if !g.busy.CompareAndSwap(false, true) {
		return Exchange{}, ErrBusy
	}

	ctx = context.WithoutCancel(ctx)
	defer func() {
		g.busy.Store(false)
		g.publishStatus(ctx, false)
	}()

	user := g.append(ctx, prompt, models.SenderUser)
	g.publishStatus(ctx, true)

	started := time.Now()
	raw, err := g.answers.Complete(ctx, prompt)

	var text string
	if err != nil {
		g.logger.Warn("answer request failed",
			zap.String("session_id", g.sessionID.String()),
			zap.Duration("duration", time.Since(started)),
			zap.Error(err),
		)
		text = FallbackErrorText
	} else {
		text = g.replies.Process(raw)
		g.logger.Debug("answer received",
			zap.String("session_id", g.sessionID.String()),
			zap.Duration("duration", time.Since(started)),
			zap.Int("raw_length", len(raw)),
			zap.Int("reply_length", len(text)),
		)
	}

	bot := g.append(ctx, text, models.SenderBot)
	return Exchange{User: g.present(user), Bot: g.present(bot)}, nil
}

func (g *Generator) append(ctx context.Context, text string, sender models.Sender) models.Message {
	msg := g.store.Append(text, sender)
	if g.events != nil {
		g.events.Publish(ctx, g.sessionID, models.WSMessage{Type: models.EventMessage, Payload: g.present(msg)})
	}
	return msg
}

func (g *Generator) publishStatus(ctx context.Context, busy bool) {
	if g.events == nil {
		return
	}
	g.events.Publish(ctx, g.sessionID, models.WSMessage{
		Type:    models.EventStatus,
		Payload: models.StatusUpdate{Busy: busy, Online: true},
	})
}
