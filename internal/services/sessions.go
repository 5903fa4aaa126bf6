package services

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"buiq-backend/internal/conversation"
	"buiq-backend/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one chat conversation. Its store lives exactly as long as the session.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Generator *Generator
	lastSeen  time.Time
}

// Store returns the session's conversation.
func (s *Session) Store() *conversation.Store {
	return s.Generator.Store()
}

// SessionOptions configures every generator the manager creates.
type SessionOptions struct {
	Answers     AnswerService
	Replies     ReplyProcessor
	Events      EventPublisher
	Present     Presenter
	IdleTimeout time.Duration
}

// SessionManager owns live sessions and expires idle ones.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	opts     SessionOptions
	logger   *zap.Logger
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewSessionManager(opts SessionOptions, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[uuid.UUID]*Session),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// PresentAll applies the configured presenter to msgs in place and returns them.
func (m *SessionManager) PresentAll(msgs []models.Message) []models.Message {
	if m.opts.Present == nil {
		return msgs
	}
	for i := range msgs {
		msgs[i] = m.opts.Present(msgs[i])
	}
	return msgs
}

// Create opens a session with an empty conversation.
func (m *SessionManager) Create() *Session {
	id := uuid.New()
	now := m.now()

	sess := &Session{
		ID:        id,
		CreatedAt: now.UTC(),
		Generator: NewGenerator(id, conversation.NewStore(), m.opts.Answers, m.opts.Replies, m.opts.Events, m.opts.Present, m.logger),
		lastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[id] = sess
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("session opened", zap.String("session_id", id.String()), zap.Int("active", count))
	return sess
}

// Get returns a live session and marks it as recently used.
func (m *SessionManager) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = m.now()
	return sess, nil
}

// Exists reports whether the session is live without marking it as used.
func (m *SessionManager) Exists(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// End destroys a session and its conversation.
func (m *SessionManager) End(id uuid.UUID) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	m.closeEvents(id)
	m.logger.Info("session ended", zap.String("session_id", id.String()))
	return nil
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ReapIdle removes sessions unused for longer than the idle timeout. Sessions
// with a request in flight are kept. It returns how many were removed.
func (m *SessionManager) ReapIdle() int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}

	cutoff := m.now().Add(-m.opts.IdleTimeout)
	var expired []uuid.UUID

	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.lastSeen.Before(cutoff) && !sess.Generator.Busy() {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.closeEvents(id)
		m.logger.Info("session expired", zap.String("session_id", id.String()))
	}
	return len(expired)
}

// Start launches the idle-session janitor.
func (m *SessionManager) Start() {
	if m.opts.IdleTimeout <= 0 {
		return
	}

	interval := m.opts.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopChan:
				return
			case <-ticker.C:
				m.ReapIdle()
			}
		}
	}()
}

// Stop halts the janitor. Safe to call more than once.
func (m *SessionManager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *SessionManager) closeEvents(id uuid.UUID) {
	if m.opts.Events != nil {
		m.opts.Events.CloseSession(id)
	}
}
