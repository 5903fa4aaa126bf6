package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"buiq-backend/internal/conversation"
	"buiq-backend/internal/models"
)

func newTestGenerator(answers AnswerService, events EventPublisher) *Generator {
	return NewGenerator(uuid.New(), conversation.NewStore(), answers, ReplyProcessor{MaxChars: 800}, events, nil, zap.NewNop())
}

func TestGenerateRejectsEmptyInput(t *testing.T) {
	answers := &stubAnswers{text: "unused"}
	gen := newTestGenerator(answers, nil)

	for _, in := range []string{"", "   ", "\n\t "} {
		_, err := gen.Generate(context.Background(), in)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}

	assert.Zero(t, gen.Store().Len())
	assert.Zero(t, answers.calls())
	assert.False(t, gen.Busy())
}

func TestGenerateAppendsExchange(t *testing.T) {
	answers := &stubAnswers{text: "**Hi** there\n\n\n"}
	gen := newTestGenerator(answers, nil)

	ex, err := gen.Generate(context.Background(), "  Hello  ")
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello"}, answers.prompts)
	assert.Equal(t, "Hello", ex.User.Text)
	assert.Equal(t, models.SenderUser, ex.User.Sender)
	assert.Equal(t, "Hi there", ex.Bot.Text)
	assert.Equal(t, models.SenderBot, ex.Bot.Sender)

	msgs := gen.Store().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, ex.User, msgs[0])
	assert.Equal(t, ex.Bot, msgs[1])
	assert.False(t, gen.Busy())

	_, err = gen.Generate(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, 4, gen.Store().Len())
}

func TestGenerateFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		answers *stubAnswers
		want    string
	}{
		{"request failure", &stubAnswers{err: &RequestError{StatusCode: 500, Message: "boom"}}, FallbackErrorText},
		{"plain error", &stubAnswers{err: errors.New("dial tcp: refused")}, FallbackErrorText},
		{"empty reply", &stubAnswers{text: ""}, EmptyReplyText},
		{"reply cleans to nothing", &stubAnswers{text: "**"}, EmptyReplyText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newTestGenerator(tt.answers, nil)

			ex, err := gen.Generate(context.Background(), "Hello")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ex.Bot.Text)
			assert.Equal(t, 2, gen.Store().Len())
			assert.False(t, gen.Busy(), "busy must be released after a failure")
		})
	}
}

func TestGenerateBusyGate(t *testing.T) {
	answers := &stubAnswers{
		text:    "done",
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	gen := newTestGenerator(answers, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := gen.Generate(context.Background(), "first")
		assert.NoError(t, err)
	}()

	select {
	case <-answers.started:
	case <-time.After(2 * time.Second):
		t.Fatal("request never started")
	}

	assert.True(t, gen.Busy())
	assert.Equal(t, 1, gen.Store().Len(), "user message is appended before the reply arrives")

	_, err := gen.Generate(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, gen.Store().Len())

	close(answers.block)
	wg.Wait()

	assert.False(t, gen.Busy())
	assert.Equal(t, 2, gen.Store().Len())
	assert.Equal(t, 1, answers.calls())
}

func TestGenerateIgnoresCallerCancellation(t *testing.T) {
	answers := &stubAnswers{text: "still here"}
	gen := newTestGenerator(answers, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex, err := gen.Generate(ctx, "Hello")
	require.NoError(t, err)
	assert.Equal(t, "still here", ex.Bot.Text)
	require.Len(t, answers.ctxErrs, 1)
	assert.NoError(t, answers.ctxErrs[0])
}

func TestGeneratePublishesEvents(t *testing.T) {
	events := &recordingEvents{}
	gen := newTestGenerator(&stubAnswers{text: "Hi"}, events)

	_, err := gen.Generate(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, []string{
		models.EventMessage,
		models.EventStatus,
		models.EventMessage,
		models.EventStatus,
	}, events.types())

	busyEvent := events.events[1].msg.Payload.(models.StatusUpdate)
	assert.True(t, busyEvent.Busy)
	idleEvent := events.events[3].msg.Payload.(models.StatusUpdate)
	assert.False(t, idleEvent.Busy)

	bot := events.events[2].msg.Payload.(models.Message)
	assert.Equal(t, "Hi", bot.Text)
	assert.Equal(t, gen.sessionID, events.events[2].sessionID)
}

func TestGenerateAppliesPresenter(t *testing.T) {
	present := func(m models.Message) models.Message {
		if m.Sender == models.SenderBot {
			m.HTML = "<p>" + m.Text + "</p>"
		}
		return m
	}
	gen := NewGenerator(uuid.New(), conversation.NewStore(), &stubAnswers{text: "**Hi**"},
		ReplyProcessor{Markdown: true}, nil, present, zap.NewNop())

	ex, err := gen.Generate(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "**Hi**", ex.Bot.Text)
	assert.Equal(t, "<p>**Hi**</p>", ex.Bot.HTML)
	assert.Empty(t, ex.User.HTML)

	stored := gen.Store().Messages()[1]
	assert.Empty(t, stored.HTML, "the store keeps the raw message")
}

func TestGenerateEndToEndREST(t *testing.T) {
	t.Run("successful reply is cleaned", func(t *testing.T) {
		srv, _ := newGeminiStub(t, http.StatusOK, textResponse("**Hi** there\n\n\n"))
		gen := newTestGenerator(NewRESTService(srv.URL, "k", fullOptions(), 0, zap.NewNop()), nil)

		_, err := gen.Generate(context.Background(), "Hello")
		require.NoError(t, err)

		msgs := gen.Store().Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, "Hello", msgs[0].Text)
		assert.Equal(t, "Hi there", msgs[1].Text)
		assert.Equal(t, models.SenderBot, msgs[1].Sender)
	})

	t.Run("http 500 becomes the fallback message", func(t *testing.T) {
		srv, _ := newGeminiStub(t, http.StatusInternalServerError, `{"error":{"message":"internal"}}`)
		gen := newTestGenerator(NewRESTService(srv.URL, "k", fullOptions(), 0, zap.NewNop()), nil)

		_, err := gen.Generate(context.Background(), "Hello")
		require.NoError(t, err)

		msgs := gen.Store().Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, "Sorry, there was an error. Please try again.", msgs[1].Text)
		assert.False(t, gen.Busy())
	})
}
